package auth

// Config holds auth configuration
type Config struct {
	Issuer   string
	JWKSURL  string
	Audience string

	// DefaultRole is assigned to tokens that carry no role claim. Every
	// signed-in user of the app is a caregiver unless stated otherwise.
	DefaultRole string
}

// FirebaseIssuer returns the issuer of ID tokens minted for a Firebase project.
func FirebaseIssuer(projectID string) string {
	return "https://securetoken.google.com/" + projectID
}
