package partition

import (
	"context"

	"github.com/arkilian/vecgen/pkg/types"
)

// Observer receives progress notifications. Reports are copies; observers
// cannot influence the writer. Calls are made from a single goroutine at a
// time, in file index order.
type Observer interface {
	FileWritten(report types.FileReport)
	RunCompleted(summary types.RunSummary)
}

// Committer is invoked after a file is closed and observed. A commit error
// aborts the run; files already committed are left in place.
type Committer interface {
	Commit(ctx context.Context, report types.FileReport) error
}

// CommitFunc adapts a function to the Committer interface.
type CommitFunc func(ctx context.Context, report types.FileReport) error

func (f CommitFunc) Commit(ctx context.Context, report types.FileReport) error {
	return f(ctx, report)
}

// NopObserver discards all notifications.
type NopObserver struct{}

func (NopObserver) FileWritten(types.FileReport)  {}
func (NopObserver) RunCompleted(types.RunSummary) {}

// MultiObserver fans notifications out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) FileWritten(report types.FileReport) {
	for _, o := range m {
		o.FileWritten(report)
	}
}

func (m MultiObserver) RunCompleted(summary types.RunSummary) {
	for _, o := range m {
		o.RunCompleted(summary)
	}
}
