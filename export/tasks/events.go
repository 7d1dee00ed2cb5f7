package tasks

import (
	"github.com/t2bot/discord-chat-archiver/export"
)

// Event is one item on a task's event stream. Exactly one terminal event
// (ResultEvent, BatchResultEvent, or ErrorEvent) is delivered per run, after
// which the stream closes.
type Event interface {
	isEvent()
}

type StatusEvent struct {
	Text string
}

type PreviewEvent struct {
	Text string
}

type ItemStartedEvent struct {
	Index int
	Total int
	Label string
}

type ProgressEvent struct {
	Attempted int
	Total     int
}

type ResultEvent struct {
	Result *export.Result
}

type BatchResultEvent struct {
	Result *export.BatchResult
}

type ErrorEvent struct {
	Message string
}

func (StatusEvent) isEvent()      {}
func (PreviewEvent) isEvent()     {}
func (ItemStartedEvent) isEvent() {}
func (ProgressEvent) isEvent()    {}
func (ResultEvent) isEvent()      {}
func (BatchResultEvent) isEvent() {}
func (ErrorEvent) isEvent()       {}
