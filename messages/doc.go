// Package messages is a client for the Messages API.
//
// It declares the request, response and stream event shapes as variant
// unions, so every payload decodes into exactly one concrete Go type:
//
//	for ev, err := range stream.All() {
//	    if err != nil {
//	        return err
//	    }
//	    switch ev := ev.(type) {
//	    case messages.ContentBlockDeltaEvent:
//	        if d, ok := ev.Delta.Value.(messages.TextDelta); ok {
//	            fmt.Print(d.Text)
//	        }
//	    case messages.MessageStopEvent:
//	        fmt.Println()
//	    }
//	}
//
// Response-side unions (StreamEvent, BlockDelta, ContentBlock, Citation) are
// extensible: a type added by the server later decodes to an Unknown* value
// that keeps the raw payload. Request-side unions are closed.
//
// An Accumulator folds a stream back into the Message a non-streaming call
// would have returned.
package messages
