package storage

import (
	"context"
	"log"
	"path"
	"path/filepath"

	"github.com/arkilian/vecgen/pkg/types"
)

// Publisher uploads closed table files, and their sidecars, to object storage.
type Publisher struct {
	store   ObjectStorage
	prefix  string
	verbose bool
}

// NewPublisher creates a publisher writing objects below prefix.
func NewPublisher(store ObjectStorage, prefix string, verbose bool) *Publisher {
	return &Publisher{store: store, prefix: prefix, verbose: verbose}
}

// ObjectPath returns the object path a local file is published to.
func (p *Publisher) ObjectPath(localPath string) string {
	return path.Join(p.prefix, filepath.Base(localPath))
}

// Publish uploads the table file and, when present, its sidecar. It returns
// the object path of the table file.
func (p *Publisher) Publish(ctx context.Context, report types.FileReport) (string, error) {
	objectPath := p.ObjectPath(report.Path)
	if err := p.store.Upload(ctx, report.Path, objectPath); err != nil {
		return "", err
	}
	if report.SidecarPath != "" {
		if err := p.store.Upload(ctx, report.SidecarPath, p.ObjectPath(report.SidecarPath)); err != nil {
			return "", err
		}
	}
	if p.verbose {
		log.Printf("storage: published file %d to %s", report.FileIndex, objectPath)
	}
	return objectPath, nil
}

// Commit publishes the file, satisfying partition.Committer.
func (p *Publisher) Commit(ctx context.Context, report types.FileReport) error {
	_, err := p.Publish(ctx, report)
	return err
}
