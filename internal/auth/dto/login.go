package dto

type LoginInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	SecretKey string `json:"secret_key"`
	IPAddress string `json:"-"`
}

type PrincipalOutput struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

type LoginResponse struct {
	Token    string          `json:"token"`
	Lecturer PrincipalOutput `json:"lecturer"`
}
