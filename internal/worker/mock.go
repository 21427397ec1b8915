package worker

import "context"

// MockFetchLibrary is a FetchLibrary test double that replays a
// fixed sequence of events and returns a fixed error, letting worker
// tests exercise the event-normalization logic without a real
// downloader.
type MockFetchLibrary struct {
	Events []FetchEvent
	Err    error

	// Calls records every FetchOptions passed to Download, for assertions
	// on how the worker resolved task parameters.
	Calls []FetchOptions
}

func (m *MockFetchLibrary) Download(ctx context.Context, opts FetchOptions, onEvent func(FetchEvent)) error {
	m.Calls = append(m.Calls, opts)
	for _, ev := range m.Events {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		onEvent(ev)
	}
	return m.Err
}
