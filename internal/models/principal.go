package models

// Principal is the resolved identity of the authenticated caller. It is
// produced exclusively by the JWT middleware from a verified token; no
// request parameter ever feeds it. Every tenant-scoped storage call takes a
// Principal, which is what keeps tenant ids out of the public surface.
type Principal struct {
	UID      string
	Username string
	Role     string
}
