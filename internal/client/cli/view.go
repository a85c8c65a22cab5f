package cli

// View is the screen currently shown. Exactly one view is active at a time.
type View int

const (
	ViewFeed View = iota
	ViewFavorites
	ViewMine
	ViewProfile
	ViewLogin
	ViewSignup
	ViewSubmit
)

func (v View) String() string {
	switch v {
	case ViewFeed:
		return "feed"
	case ViewFavorites:
		return "favorites"
	case ViewMine:
		return "mine"
	case ViewProfile:
		return "profile"
	case ViewLogin:
		return "login"
	case ViewSignup:
		return "signup"
	case ViewSubmit:
		return "submit"
	default:
		return "unknown"
	}
}

// isForm reports whether v collects input rather than listing stories.
func (v View) isForm() bool {
	return v == ViewLogin || v == ViewSignup || v == ViewSubmit
}

// show makes v the only active view.
func (a *App) show(v View) {
	if !v.isForm() && v != ViewProfile {
		a.listed = nil
	}
	a.view = v
}
