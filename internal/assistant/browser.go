package assistant

import (
	"context"

	"voxsurf/internal/pageindex"
)

// Browser is the slice of the live browser session the dispatcher drives.
// *browser.Session implements it; tests substitute a fake.
type Browser interface {
	IsOpen() bool
	Open(ctx context.Context) error
	Close() error

	Navigate(ctx context.Context, url string) error
	Back(ctx context.Context) error
	Forward(ctx context.Context) error
	Refresh(ctx context.Context) error
	Scroll(ctx context.Context, direction string) error
	Search(ctx context.Context, query string) error

	Title(ctx context.Context) (string, error)
	URL(ctx context.Context) (string, error)
	Bookmark(ctx context.Context) error

	NewTab(ctx context.Context) error
	CloseTab(ctx context.Context) error
	SwitchTab(ctx context.Context, direction string) error

	HarvestResults(ctx context.Context, max int) ([]pageindex.ResultEntry, error)
	HarvestLinks(ctx context.Context, max int) ([]pageindex.LinkEntry, error)
	ClickLink(ctx context.Context, entry pageindex.LinkEntry) error
}

// Responder answers utterances no command pattern claims.
type Responder interface {
	Respond(ctx context.Context, utterance string) (string, error)
}

// Recorder persists handled exchanges. *transcript.Recorder implements it.
type Recorder interface {
	Record(utterance, kind, reply string)
}
