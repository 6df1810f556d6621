package model

type RegisterRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RequestOTPRequest struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type VerifyOTPRequest struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	ResetToken  string `json:"reset_token"`
	NewPassword string `json:"new_password"`
}

// SetPasswordRequest completes a Google sign-up that has no local password yet.
// Grant is the signup grant handed out by the Google callback redirect.
type SetPasswordRequest struct {
	Status   string `json:"status"`
	Grant    string `json:"grant"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}
