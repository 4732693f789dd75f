package snooze_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/GSejas/health-watch-sub002/internal/application/snooze"
	domainsnooze "github.com/GSejas/health-watch-sub002/internal/domain/snooze"
)

func TestIsSnoozed_NoneByDefault(t *testing.T) {
	r := snooze.New(nil)
	assert.False(t, r.IsSnoozed("web", time.Now()))
}

func TestAdd_CoversNamedScope(t *testing.T) {
	r := snooze.New(nil)
	now := time.Now()
	r.Add("web", time.Minute, "maintenance", now)

	assert.True(t, r.IsSnoozed("web", now.Add(time.Second)))
	assert.False(t, r.IsSnoozed("db", now.Add(time.Second)))
}

func TestAdd_WildcardCoversEveryChannel(t *testing.T) {
	r := snooze.New(nil)
	now := time.Now()
	r.Add(domainsnooze.WildcardScope, time.Minute, "global maintenance", now)

	assert.True(t, r.IsSnoozed("web", now))
	assert.True(t, r.IsSnoozed("db", now))
}

func TestIsSnoozed_FalseAfterExpiry(t *testing.T) {
	r := snooze.New(nil)
	now := time.Now()
	r.Add("web", time.Minute, "maintenance", now)

	assert.False(t, r.IsSnoozed("web", now.Add(2*time.Minute)))
}

func TestClear_RemovesOnlyNamedScope(t *testing.T) {
	r := snooze.New(nil)
	now := time.Now()
	r.Add("web", time.Minute, "maintenance", now)
	r.Add("db", time.Minute, "maintenance", now)

	r.Clear("web")
	assert.False(t, r.IsSnoozed("web", now))
	assert.True(t, r.IsSnoozed("db", now))
}
