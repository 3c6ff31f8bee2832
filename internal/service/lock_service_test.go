package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempora-ai/be-timesheets/internal/domain"
	"github.com/tempora-ai/be-timesheets/internal/errors"
)

func marchPeriod() (time.Time, time.Time) {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)
}

func TestCreateLock(t *testing.T) {
	lockRepo := newFakeLockRepo()
	audit := &fakeAuditRepo{}
	svc := NewLockService(lockRepo, newFakeEntryRepo(), audit, testLogger())

	start, end := marchPeriod()
	lock, err := svc.CreateLock(context.Background(), &CreateLockRequest{
		ProjectID:   strPtr("proj-1"),
		PeriodStart: start,
		PeriodEnd:   end,
		Reason:      "March billing cycle closed",
	}, actorCtx("admin"))
	require.NoError(t, err)

	assert.NotEmpty(t, lock.ID)
	assert.True(t, lock.IsActive)
	assert.Equal(t, "user-1", lock.LockedBy)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, domain.ActionLock, audit.logs[0].Action)
	assert.Equal(t, "TimeLock", audit.logs[0].EntityType)
}

func TestCreateLockRejectsMissingScope(t *testing.T) {
	svc := NewLockService(newFakeLockRepo(), newFakeEntryRepo(), &fakeAuditRepo{}, testLogger())

	start, end := marchPeriod()
	_, err := svc.CreateLock(context.Background(), &CreateLockRequest{
		PeriodStart: start,
		PeriodEnd:   end,
		Reason:      "no scope",
	}, actorCtx("admin"))
	require.Error(t, err)
	assert.Equal(t, 400, errors.HTTPStatus(err))
}

func TestCreateLockRejectsOverlappingSameScope(t *testing.T) {
	start, end := marchPeriod()
	svc := NewLockService(newFakeLockRepo(), newFakeEntryRepo(), &fakeAuditRepo{}, testLogger())

	_, err := svc.CreateLock(context.Background(), &CreateLockRequest{
		ProjectID:   strPtr("proj-1"),
		PeriodStart: start,
		PeriodEnd:   end,
		Reason:      "first",
	}, actorCtx("admin"))
	require.NoError(t, err)

	// Interior overlap on the same project conflicts.
	_, err = svc.CreateLock(context.Background(), &CreateLockRequest{
		ProjectID:   strPtr("proj-1"),
		PeriodStart: start.Add(10 * 24 * time.Hour),
		PeriodEnd:   end.Add(10 * 24 * time.Hour),
		Reason:      "second",
	}, actorCtx("admin"))
	require.Error(t, err)
	assert.Equal(t, 409, errors.HTTPStatus(err))

	// A different project is free to lock the same period.
	_, err = svc.CreateLock(context.Background(), &CreateLockRequest{
		ProjectID:   strPtr("proj-2"),
		PeriodStart: start,
		PeriodEnd:   end,
		Reason:      "other project",
	}, actorCtx("admin"))
	require.NoError(t, err)
}

func TestUnlock(t *testing.T) {
	start, end := marchPeriod()
	lockRepo := newFakeLockRepo(domain.TimeLock{
		ID:          "lock-1",
		ProjectID:   strPtr("proj-1"),
		PeriodStart: start,
		PeriodEnd:   end,
		LockedBy:    "admin-1",
		LockedAt:    end,
		IsActive:    true,
	})
	audit := &fakeAuditRepo{}
	svc := NewLockService(lockRepo, newFakeEntryRepo(), audit, testLogger())

	require.NoError(t, svc.Unlock(context.Background(), "lock-1", actorCtx("admin")))

	stored := lockRepo.locks["lock-1"]
	assert.False(t, stored.IsActive)
	require.NotNil(t, stored.UnlockedBy)
	assert.Equal(t, "user-1", *stored.UnlockedBy)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, domain.ActionUnlock, audit.logs[0].Action)
}

func TestUnlockMissingLock(t *testing.T) {
	svc := NewLockService(newFakeLockRepo(), newFakeEntryRepo(), &fakeAuditRepo{}, testLogger())

	err := svc.Unlock(context.Background(), "missing", actorCtx("admin"))
	require.Error(t, err)
	assert.Equal(t, 404, errors.HTTPStatus(err))
}

func TestAffectedEntriesPreview(t *testing.T) {
	start, end := marchPeriod()
	inside := draftEntry("e1", "dev-1", start.Add(5*24*time.Hour), 60)
	outside := draftEntry("e2", "dev-1", end.Add(48*time.Hour), 60)
	svc := NewLockService(newFakeLockRepo(), newFakeEntryRepo(inside, outside), &fakeAuditRepo{}, testLogger())

	entries, err := svc.AffectedEntries(context.Background(), domain.TimeLock{
		ProjectID:   strPtr("proj-1"),
		PeriodStart: start,
		PeriodEnd:   end,
		IsActive:    true,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "e1", entries[0].ID)
}
