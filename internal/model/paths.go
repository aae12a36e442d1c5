package model

// Shallwe backend API paths, relative to the backend base URL.
const (
	ProfileStatusPath   = "/api/rest/access/profile-status"
	LoginGooglePath     = "/api/rest/auth/login/google/"
	LogoutPath          = "/api/rest/auth/logout/"
	UserPath            = "/api/rest/auth/user/"
	TestUnprotectedPath = "/api/rest/auth/test-api-unprotected/"
	TestProtectedPath   = "/api/rest/auth/test-api-protected/"
)
