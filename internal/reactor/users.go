package reactor

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/slack-go/slack"
)

var (
	demoUserCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slackbrix_demo_user_cache_hits_total",
		Help: "Demo user lookups served from the in-process cache.",
	})
	demoUserCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slackbrix_demo_user_cache_misses_total",
		Help: "Demo user lookups that listed workspace users.",
	})
)

// DemoUser is a workspace member the scripted conversation posts as.
type DemoUser struct {
	ID          string
	Name        string
	DisplayName string
	Image512    string
}

// DemoUserDirectory resolves demo usernames to workspace members. Results are
// cached per installation because users.list is slow on large workspaces.
type DemoUserDirectory struct {
	cache *expirable.LRU[string, map[string]DemoUser]
}

func NewDemoUserDirectory(size int, ttl time.Duration) *DemoUserDirectory {
	if size <= 0 {
		size = 128
	}
	return &DemoUserDirectory{
		cache: expirable.NewLRU[string, map[string]DemoUser](size, nil, ttl),
	}
}

// Lookup returns the members whose username is in names, keyed by username.
// Deleted members are skipped and names with no match are absent. An empty
// result is not cached so a freshly provisioned workspace is picked up.
func (d *DemoUserDirectory) Lookup(ctx context.Context, client SlackClient, cacheKey string, names []string) (map[string]DemoUser, error) {
	if cached, ok := d.cache.Get(cacheKey); ok {
		demoUserCacheHits.Inc()
		return cached, nil
	}
	demoUserCacheMisses.Inc()

	users, err := client.GetUsersContext(ctx, slack.GetUsersOptionLimit(1000))
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	found := matchDemoUsers(users, names)
	if len(found) > 0 {
		d.cache.Add(cacheKey, found)
	}
	return found, nil
}

// Forget drops the cached members for an installation.
func (d *DemoUserDirectory) Forget(cacheKey string) {
	d.cache.Remove(cacheKey)
}

func matchDemoUsers(users []slack.User, names []string) map[string]DemoUser {
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}

	found := make(map[string]DemoUser, len(names))
	for _, u := range users {
		if u.ID == "" || u.Deleted {
			continue
		}
		if _, ok := wanted[u.Name]; !ok {
			continue
		}
		if _, dup := found[u.Name]; dup {
			continue
		}
		found[u.Name] = DemoUser{
			ID:          u.ID,
			Name:        u.Name,
			DisplayName: displayName(u),
			Image512:    u.Profile.Image512,
		}
	}
	return found
}

func displayName(u slack.User) string {
	switch {
	case u.Profile.DisplayName != "":
		return u.Profile.DisplayName
	case u.RealName != "":
		return u.RealName
	default:
		return u.Name
	}
}
