// Package navigation builds the page header shared by all templates.
package navigation

// Sections of the site.
const (
	SectionHome  = "home"
	SectionLogin = "login"
)

// Link is a single navigation entry.
type Link struct {
	Title  string
	URL    string
	Active bool
}

// Page holds the title and navigation links of a rendered page.
type Page struct {
	Title   string
	Section string
	Links   []Link
}

// NewPage returns the header for a page in section. Signed in users get
// home and sign out links, anonymous users the sign in link.
func NewPage(title, section string, signedIn bool) *Page {
	p := &Page{Title: title, Section: section}

	if signedIn {
		p.add("Home", "/", SectionHome)
		p.add("Sign out", "/logout", "")
	} else {
		p.add("Sign in", "/login", SectionLogin)
	}

	return p
}

func (p *Page) add(title, url, section string) {
	p.Links = append(p.Links, Link{
		Title:  title,
		URL:    url,
		Active: section != "" && section == p.Section,
	})
}

// IsSectionActive checks if the given section is active.
func (p *Page) IsSectionActive(section string) bool {
	return p.Section == section
}
