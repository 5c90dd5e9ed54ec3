// Package proxy contains the HTTP plumbing shared by the relay's handlers:
// request parsing, credential extraction, model mapping, error bodies and
// Server-Sent Events output.
//
// # Requests
//
// ParseChatRequest decodes a chat completion body into the upstream request
// type and checks the few fields every upstream requires. The rest of the
// body is relayed untouched. ModelMapper then rewrites Claude-style model
// names to the configured upstream models and clamps max_tokens:
//
//	mapper := proxy.NewModelMapper(cfg.Models)
//	req, err := proxy.ParseChatRequest(r)
//	if err != nil {
//	    proxy.WriteErrorResponse(w, proxy.HandleError(err))
//	    return
//	}
//	mapper.Apply(&req)
//
// # Errors
//
// HandleError turns any error into an OpenAI-compatible body. Dispatch
// failures (*providers.Error) keep their status and classified message, so
// a caller sees 401, 429 or 499 exactly as the dispatcher reported them.
//
// # Streaming
//
// SSEWriter writes dispatcher frames as events separated by blank lines and
// flushes after each one. A failure after the first frame is reported as a
// final error event; no [DONE] marker follows it.
package proxy
