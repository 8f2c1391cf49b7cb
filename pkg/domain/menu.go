package domain

// MenuPermission is a role's enabled flag for one navigable menu entry.
type MenuPermission struct {
	MenuID   int64  `json:"menu_id"`
	MenuName string `json:"menu_name"`
	Route    string `json:"route,omitempty"`
	Enabled  bool   `json:"enabled"`
}

// MenuItem is a renderable navigation entry.
type MenuItem struct {
	ID             string `json:"id"`
	Label          string `json:"label"`
	IconRef        string `json:"icon_ref"`
	Route          string `json:"route,omitempty"`
	OriginalMenuID int64  `json:"original_menu_id,omitempty"` // 0 for fallback entries
}
