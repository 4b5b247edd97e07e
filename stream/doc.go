// Package stream reads a server-sent event stream and yields each record's
// payload decoded through a variant union.
//
// The reader is a pull iterator in the style of generated API SDKs:
//
//	s := stream.New(ctx, resp.Body, events)
//	defer s.Close()
//	for s.Next() {
//	    handle(s.Current())
//	}
//	if err := s.Err(); err != nil {
//	    return err
//	}
//
// or, with range-over-func:
//
//	for ev, err := range s.All() {
//	    ...
//	}
//
// Records are yielded in arrival order and never dropped, except records with
// no data lines, which are heartbeats. A payload that fails to decode ends the
// stream with that error. A stream cut off inside a record ends with
// core.ErrTruncatedStream rather than a clean finish.
//
// A Stream has one consumer; Next must not be called concurrently.
package stream
