package templates

// VerifyEmailData holds variables for the user.verify_email scenario.
type VerifyEmailData struct {
	Email     string
	Link      string
	ExpiresIn string
}

// VerifyEmail is the typed handle for the user.verify_email template.
var VerifyEmail = Expect[VerifyEmailData]("user.verify_email")
