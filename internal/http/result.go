package httpapi

// Result is the JSON envelope of every non-streaming response.
// - code: 2000 on success, -1 on failure
// - type: "success" | "error"
// - message: "ok" or a message safe to show to the user
// - result: payload, null on failure
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}
