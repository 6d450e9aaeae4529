// Package fetch provides small state controllers that sit between a caller
// (a dashboard, a CLI, a background job) and the functions that load or
// change remote data.
//
// Three controllers are provided:
//
//   - Query wraps a zero-argument read and tracks {data, loading, error}. It
//     can replay a time-boxed cached result and re-run the read on a fixed
//     interval until it is closed.
//   - Paged builds on Query for list results that report a total count and
//     adds a page cursor with NextPage/PrevPage/HasMore.
//   - Mutation wraps a one-argument write and tracks its outcome without
//     caching or polling.
//
// Failures never escape a controller. An error returned by the wrapped
// function, or a panic raised inside it, is converted to a message and
// stored in State.Error. Data from the last success is kept while a new
// request is loading or after it fails.
//
// Every wrapped function receives a context that is cancelled when the
// caller's context is cancelled, when the controller is closed, or when the
// configured Timeout elapses. Functions should return promptly once their
// context is done; Close waits for background requests to return.
package fetch
