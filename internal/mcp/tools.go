package mcp

import "github.com/mark3labs/mcp-go/mcp"

const typeDescription = "Content type: canonical name (essay) or route (essays)"

var listToolDef = mcp.NewTool("content_list",
	mcp.WithDescription("List active items of a content type, newest first. Use type \"all\" for every enabled type."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("type", mcp.Required(), mcp.Description(typeDescription+", or \"all\"")),
	mcp.WithString("category", mcp.Description("Only items in this category slug")),
	mcp.WithString("tag", mcp.Description("Only items carrying this tag")),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
)

var getToolDef = mcp.NewTool("content_get",
	mcp.WithDescription("Fetch one item by type and slug, with its body rendered to HTML."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("type", mcp.Required(), mcp.Description(typeDescription)),
	mcp.WithString("slug", mcp.Required(), mcp.Description("Item slug")),
	mcp.WithBoolean("include_hidden", mcp.Description("Return the item even when it is hidden (needs allow_preview)")),
)

var searchToolDef = mcp.NewTool("content_search",
	mcp.WithDescription("Full-text search over active items. Every term must match; title matches rank higher."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("query", mcp.Required(), mcp.Description("Search terms")),
	mcp.WithString("type", mcp.Description(typeDescription+"; empty searches every type")),
	mcp.WithString("category", mcp.Description("Only items in this category slug")),
	mcp.WithString("tag", mcp.Description("Only items carrying this tag")),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Results to skip")),
)

var typesToolDef = mcp.NewTool("content_types",
	mcp.WithDescription("Summarize every enabled content type: route, active and hidden counts, latest date."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var tagsToolDef = mcp.NewTool("content_tags",
	mcp.WithDescription("Tags with usage counts, for one type or across all types."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("type", mcp.Description(typeDescription+"; empty or \"all\" merges every type")),
)

var categoriesToolDef = mcp.NewTool("content_categories",
	mcp.WithDescription("Categories with usage counts, for one type or across all types."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("type", mcp.Description(typeDescription+"; empty or \"all\" merges every type")),
)

var sequenceGetToolDef = mcp.NewTool("sequence_get",
	mcp.WithDescription("Fetch a sequence with its posts resolved to items, in reading order."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("slug", mcp.Required(), mcp.Description("Sequence slug")),
	mcp.WithBoolean("include_hidden", mcp.Description("Return the sequence even when it is hidden (needs allow_preview)")),
)

var sequenceListToolDef = mcp.NewTool("sequence_list",
	mcp.WithDescription("List active sequences, newest first."),
	mcp.WithReadOnlyHintAnnotation(true),
)
