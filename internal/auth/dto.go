package auth

import "errors"

// LoginDTO is the credential payload for POST /token. Both JSON bodies and
// classic form posts decode into it.
type LoginDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (dto LoginDTO) Validate() error {
	if dto.Username == "" {
		return errors.New("username is required")
	}
	if dto.Password == "" {
		return errors.New("password is required")
	}
	return nil
}
