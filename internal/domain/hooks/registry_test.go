package hooks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folivafy/folivafy/internal/domain/search"
)

type stubEventHook struct{ name string }

func (h *stubEventHook) OnCreating(ctx context.Context, hctx *EventContext) (*EventResult, error) {
	return &EventResult{}, nil
}

func (h *stubEventHook) OnCreated(ctx context.Context, hctx *CreatedEventContext) (*Result, error) {
	return EmptyResult(), nil
}

type stubCronHook struct{}

func (h *stubCronHook) OnDefaultInterval(ctx context.Context, hctx *CronContext) (*Result, error) {
	return EmptyResult(), nil
}

func TestEventHookKeyedByCollectionAndCategory(t *testing.T) {
	registry := NewRegistry()
	hook := &stubEventHook{name: "a"}

	registry.PutEventHook("shapes", 2, hook)

	assert.Equal(t, hook, registry.GetEventHook("shapes", 2))
	assert.Nil(t, registry.GetEventHook("shapes", 3))
	assert.Nil(t, registry.GetEventHook("other", 2))
}

func TestDuplicateRegistrationReplaces(t *testing.T) {
	registry := NewRegistry()
	first := &stubEventHook{name: "first"}
	second := &stubEventHook{name: "second"}

	registry.PutEventHook("shapes", 2, first)
	registry.PutEventHook("shapes", 2, second)

	assert.Equal(t, second, registry.GetEventHook("shapes", 2))
}

func TestCronHooksSnapshot(t *testing.T) {
	registry := NewRegistry()
	hook := &stubCronHook{}

	registry.PutCronHook("shapes staged_delete", "shapes",
		ByDateFieldOlderThan("folivafy_deleted_at", 37*24*time.Hour), hook)
	registry.PutCronHook("folivafy mailer", "folivafy-mail",
		ByFieldEqualsValue("status", "pending"), hook)

	regs := registry.CronHooks()
	require.Len(t, regs, 2)

	names := []string{regs[0].JobName, regs[1].JobName}
	assert.ElementsMatch(t, []string{"shapes staged_delete", "folivafy mailer"}, names)
}

func TestSelectorByFieldEqualsValueFilter(t *testing.T) {
	sel := ByFieldEqualsValue("status", "pending")

	f := sel.ToFilter(time.Now())

	assert.False(t, f.IsGroup())
	assert.Equal(t, "status", f.Field())
	assert.Equal(t, search.OpEqual, f.Op())
	assert.Equal(t, "pending", f.Value())
}

func TestSelectorByDateFieldOlderThanFilter(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	sel := ByDateFieldOlderThan("folivafy_deleted_at", 10*24*time.Hour)

	f := sel.ToFilter(now)

	require.True(t, f.IsGroup())
	children := f.Children()
	require.Len(t, children, 2)
	assert.Equal(t, search.OpNotNull, children[0].Op())
	assert.Equal(t, search.OpLessThan, children[1].Op())
	assert.Equal(t, "2026-01-31T12:00:00Z", children[1].Value())
}
