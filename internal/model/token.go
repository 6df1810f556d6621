package model

// Claims is the subject payload embedded in access and refresh tokens.
type Claims struct {
	ID       string `json:"id"`
	Avatar   string `json:"avatar"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func NewClaims(account Account, profile Profile) Claims {
	return Claims{
		ID:       account.ID,
		Avatar:   profile.Avatar,
		Email:    account.Email,
		FullName: profile.FullName,
		Role:     account.Role,
	}
}

// TokenPair is derived per request and never persisted. RefreshToken only
// ever leaves the server in a cookie.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"-"`
}

type AccessTokenBody struct {
	AccessToken string `json:"accessToken"`
}
