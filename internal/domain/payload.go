package domain

// ChatPayload is the JSON body accepted by the receive-data endpoint.
type ChatPayload struct {
	PromptUser string    `json:"prompt_user" validate:"required,notblank" example:"hola"`
	Stream     bool      `json:"stream"      example:"false"`
	UserData   *UserData `json:"user_data"   validate:"required"`
	// Datetime is the client clock in unix seconds; informational only.
	Datetime *int64 `json:"datetime,omitempty" example:"1672444800"`
}

// UserData identifies the sender and carries optional profile fields.
type UserData struct {
	ID          string       `json:"id"                   validate:"required,notblank,max=255" example:"user123"`
	Name        *string      `json:"user_name,omitempty"  validate:"omitempty,max=255"`
	Email       *string      `json:"user_email,omitempty" validate:"omitempty,email,max=255"`
	BrowserData *BrowserData `json:"browserData,omitempty"`
}

// BrowserData is the optional fingerprint sent by the web widget.
type BrowserData struct {
	UserAgent        *string `json:"userAgent,omitempty"        validate:"omitempty,max=512"`
	ScreenResolution *string `json:"screenResolution,omitempty" validate:"omitempty,max=50"`
	Language         *string `json:"language,omitempty"         validate:"omitempty,max=10"`
	Platform         *string `json:"platform,omitempty"         validate:"omitempty,max=50"`
}

// ToUser maps the payload identity block onto a User for upserting.
func (u UserData) ToUser() User {
	user := User{UserID: u.ID, Name: u.Name, Email: u.Email}
	if b := u.BrowserData; b != nil {
		user.UserAgent = b.UserAgent
		user.ScreenResolution = b.ScreenResolution
		user.Language = b.Language
		user.Platform = b.Platform
	}
	return user
}
