package recorder

import "github.com/shadiayoub/okx-bot/internal/model"

// NoopRecorder is used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSignal(_ *SignalRecord) error     { return nil }
func (n *NoopRecorder) RecordOrder(_ *OrderRecord) error       { return nil }
func (n *NoopRecorder) RecordPnL(_ *model.RealizedPnL) error   { return nil }
func (n *NoopRecorder) RecordAlert(_, _ string) error          { return nil }
func (n *NoopRecorder) Close() error                           { return nil }
