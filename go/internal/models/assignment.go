package models

// ViewAssignment records which logger currently owns a view
type ViewAssignment struct {
	LoggerID       string `json:"logger_id"`
	LoggerName     string `json:"logger_name"`
	LoggerInitials string `json:"logger_initials"`
}

// AssignmentFor builds the assignment value for a logger
func AssignmentFor(l Logger) ViewAssignment {
	return ViewAssignment{
		LoggerID:       l.ID,
		LoggerName:     l.DisplayName,
		LoggerInitials: l.Initials,
	}
}

// TakeOverRequest is a pending hand-off of a view to another logger
type TakeOverRequest struct {
	FromLoggerID       string `json:"from_logger_id"`
	FromLoggerName     string `json:"from_logger_name"`
	FromLoggerInitials string `json:"from_logger_initials"`
}

// RequestFrom builds the pending request value for a logger
func RequestFrom(l Logger) TakeOverRequest {
	return TakeOverRequest{
		FromLoggerID:       l.ID,
		FromLoggerName:     l.DisplayName,
		FromLoggerInitials: l.Initials,
	}
}

// Requester converts the request back into the logger it came from
func (r TakeOverRequest) Requester() Logger {
	return Logger{
		ID:          r.FromLoggerID,
		DisplayName: r.FromLoggerName,
		Initials:    r.FromLoggerInitials,
	}
}

// Assignments maps each owned view to its holder
type Assignments map[ViewID]ViewAssignment

// TakeOverRequests maps each view to its single pending request
type TakeOverRequests map[ViewID]TakeOverRequest
