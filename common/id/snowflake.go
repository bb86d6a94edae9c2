// Package id hands out run ids for demo conversations. Ids are snowflakes so
// the server and worker can both mint them without coordination.
package id

import (
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Node ids per process role. Each role must use its own so ids never collide.
const (
	NodeServer int64 = 1
	NodeWorker int64 = 2
)

var (
	node    *snowflake.Node
	nodeErr error
	once    sync.Once
)

// Init binds the generator to nodeID. Only the first call has any effect.
func Init(nodeID int64) error {
	once.Do(func() {
		node, nodeErr = snowflake.NewNode(nodeID)
		if nodeErr != nil {
			nodeErr = fmt.Errorf("snowflake node %d: %w", nodeID, nodeErr)
		}
	})
	return nodeErr
}

// New returns a fresh run id. It panics if Init was never called or failed.
func New() int64 {
	if node == nil {
		panic("id: New called before a successful Init")
	}
	return node.Generate().Int64()
}

// Time reports when the id was minted.
func Time(runID int64) time.Time {
	return time.UnixMilli(snowflake.ID(runID).Time())
}
