package session

const (
	// CurrentSession is the well-known storage key the token pair lives under,
	// so a restarted runtime picks up where it left off.
	CurrentSession = "currentSession"

	loginPath   = "/auth/login"
	refreshPath = "/auth/refresh"
	logoutPath  = "/auth/logout"
)

// Tokens is the credential pair for the backend: a short-lived access token
// attached as bearer to every call and a longer-lived refresh token used to
// mint a new access token.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

func (t Tokens) IsAuthenticated() bool {
	return t.AccessToken != ""
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Role         string `json:"role"`
	UserUID      string `json:"id"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access string `json:"access"`
}
