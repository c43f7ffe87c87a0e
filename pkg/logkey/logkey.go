package logkey

const (
	TraceID = "TRACE ID"
	ERROR   = "ERROR"
	UserID  = "UserID"
	OrderID = "OrderID"
)
