package compose

// Restaurant is the denormalized menu of one restaurant as served to clients.
type Restaurant struct {
	ID                    string     `json:"id"`
	Slug                  string     `json:"slug,omitempty"`
	OrganizationID        string     `json:"organization_id,omitempty"`
	Name                  string     `json:"name"`
	Description           string     `json:"description"`
	WelcomeMessage        string     `json:"welcome_message"`
	Image                 string     `json:"image"`
	WaiterCallEnabled     bool       `json:"waiter_call_enabled"`
	WhatsappEnabled       bool       `json:"whatsapp_enabled"`
	WhatsappPhone         string     `json:"whatsapp_phone,omitempty"`
	WhatsappCustomMessage string     `json:"whatsapp_custom_message,omitempty"`
	MenuCategories        []string   `json:"menu_categories"`
	FeaturedDishes        []MenuItem `json:"featured_dishes"`
	MenuItems             []MenuItem `json:"menu_items"`
}

// MenuItem is a dish with its categories, complement groups and formatted price.
// ComplementGroups is nil, and omitted from JSON, when the dish has none.
type MenuItem struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	Price            string            `json:"price"`
	Image            string            `json:"image"`
	Category         string            `json:"category"`
	Categories       []string          `json:"categories"`
	Tags             []string          `json:"tags"`
	Ingredients      string            `json:"ingredients"`
	Allergens        string            `json:"allergens"`
	Portion          string            `json:"portion"`
	IsAvailable      bool              `json:"is_available"`
	IsFeatured       bool              `json:"is_featured"`
	ComplementGroups []ComplementGroup `json:"complement_groups,omitempty"`
}

type ComplementGroup struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Required      bool         `json:"required"`
	MaxSelections int          `json:"max_selections"`
	Complements   []Complement `json:"complements"`
}

type Complement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Image       string `json:"image"`
	Ingredients string `json:"ingredients"`
}

// Item returns the menu item with the given id.
func (r *Restaurant) Item(id string) (MenuItem, bool) {
	for _, it := range r.MenuItems {
		if it.ID == id {
			return it, true
		}
	}
	return MenuItem{}, false
}
