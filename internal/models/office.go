package models

// FileOpenRequest is the argument object of file_open.
type FileOpenRequest struct {
	FilePath string `json:"file_path" validate:"required" jsonschema:"required" jsonschema_description:"Absolute path of the file to open with its default application."`
}

// SendEmailRequest is the argument object of send_email. Nothing is sent
// until the caller repeats the call with IsOK set.
type SendEmailRequest struct {
	To      []string `json:"to" validate:"required,min=1,dive,email" jsonschema:"required,minItems=1" jsonschema_description:"Recipient addresses."`
	Subject string   `json:"sub" validate:"required" jsonschema:"required" jsonschema_description:"Subject line."`
	Message string   `json:"message" validate:"required" jsonschema:"required" jsonschema_description:"Plain-text body."`
	IsOK    bool     `json:"is_ok,omitempty" jsonschema_description:"Set only after the user confirmed sending a second time."`
	Cc      []string `json:"cc,omitempty" validate:"omitempty,dive,email" jsonschema_description:"Carbon-copy addresses."`
}

// DatetimeRequest is the (empty) argument object of retrieve_current_datetime.
type DatetimeRequest struct{}

// DatetimeResponse is the result of retrieve_current_datetime.
type DatetimeResponse struct {
	Datetime string `json:"datetime"`
}
