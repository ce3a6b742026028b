package errfeed

import (
	"testing"

	"github.com/airbandcore/airbandcore/internal/errs"
	"github.com/stretchr/testify/require"
)

func TestReportEvictsOldestWhenFull(t *testing.T) {
	f := New(2)
	f.Report(errs.New(errs.KindInternal, "comp", "first"))
	f.Report(errs.New(errs.KindInternal, "comp", "second"))
	f.Report(errs.New(errs.KindInternal, "comp", "third"))

	entries := f.List()
	require.Len(t, entries, 2)
	require.Contains(t, entries[0].Message, "second")
	require.Contains(t, entries[1].Message, "third")
}

func TestNewDefaultsCapacity(t *testing.T) {
	f := New(0)
	require.Equal(t, DefaultCapacity, f.capacity)
}

func TestClearEmptiesFeed(t *testing.T) {
	f := New(4)
	f.Report(errs.New(errs.KindConfig, "comp", "oops"))
	require.Len(t, f.List(), 1)

	f.Clear()
	require.Empty(t, f.List())
}

func TestListReturnsIndependentCopy(t *testing.T) {
	f := New(4)
	f.Report(errs.New(errs.KindConfig, "comp", "oops"))

	entries := f.List()
	original := entries[0].Message
	entries[0].Message = "mutated"

	require.Equal(t, original, f.List()[0].Message)
}
