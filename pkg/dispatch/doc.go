// Package dispatch runs chat completions against pooled session handles.
//
// Dispatcher.Execute performs a single-shot call. Dispatcher.ExecuteStream
// opens a streaming call and returns a FrameStream that turns upstream chunks
// into "data: <json>" frames terminated by "data: [DONE]".
//
// Both race the upstream call against the request's cancellation signal,
// which Dispatcher.Cancel fires. Cancellation is cooperative: a single-shot
// call is abandoned by cancelling its context and waiting for it to return,
// and a stream checks the signal before framing each chunk and again at
// exhaustion. A cancelled request fails with status 499 and, for streams,
// never produces the [DONE] sentinel.
//
// Every error leaving this package is a *providers.Error:
//
//	stream, err := d.ExecuteStream(ctx, handle, req, requestID)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//
//	for {
//	    frame, err := stream.Next()
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    write(frame)
//	}
package dispatch
