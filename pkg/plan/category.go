package plan

import "strings"

// Category classifies one planned file. The set is closed; plan ingestion
// normalizes whatever the model produced onto it exactly once, so the rest
// of the pipeline can dispatch exhaustively.
type Category string

const (
	CategoryPage          Category = "page"
	CategoryLayout        Category = "layout"
	CategoryComponent     Category = "component"
	CategoryAPI           Category = "api"
	CategoryUtility       Category = "utility"
	CategoryHook          Category = "hook"
	CategoryType          Category = "type"
	CategoryConfig        Category = "config"
	CategoryStyle         Category = "style"
	CategoryStatic        Category = "static"
	CategoryDocumentation Category = "documentation"
	// Framework-special categories
	CategoryMiddleware Category = "middleware"
	CategoryLoading    Category = "loading"
	CategoryErrorPage  Category = "error-page"
	CategoryNotFound   Category = "not-found"
)

// AllCategories lists every valid category.
var AllCategories = []Category{
	CategoryPage, CategoryLayout, CategoryComponent, CategoryAPI,
	CategoryUtility, CategoryHook, CategoryType, CategoryConfig,
	CategoryStyle, CategoryStatic, CategoryDocumentation,
	CategoryMiddleware, CategoryLoading, CategoryErrorPage, CategoryNotFound,
}

// ParseCategory normalizes a raw category string onto the closed set,
// absorbing the singular/plural and synonym drift models produce. Unknown
// categories normalize to utility so generation can always proceed.
func ParseCategory(raw string) Category {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.TrimSuffix(normalized, "s")

	switch normalized {
	case "page":
		return CategoryPage
	case "layout":
		return CategoryLayout
	case "component", "ui-component", "widget":
		return CategoryComponent
	case "api", "api-route", "route", "endpoint", "handler":
		return CategoryAPI
	case "utility", "util", "helper", "lib":
		return CategoryUtility
	case "hook":
		return CategoryHook
	case "type", "typescript", "interface", "model":
		return CategoryType
	case "config", "configuration":
		return CategoryConfig
	case "style", "stylesheet", "cs":
		// "cs" is "css" after plural trimming
		return CategoryStyle
	case "static", "asset", "public":
		return CategoryStatic
	case "documentation", "doc", "readme":
		return CategoryDocumentation
	case "middleware":
		return CategoryMiddleware
	case "loading":
		return CategoryLoading
	case "error-page", "error":
		return CategoryErrorPage
	case "not-found", "notfound", "404":
		return CategoryNotFound
	default:
		return CategoryUtility
	}
}
