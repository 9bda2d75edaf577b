package api

var pageTemplates = []string{
	"landing",
	"privacy",
	"not_found",
}

var partialTemplateFiles = []string{
	"form_partial.html",
	"chat_partial.html",
	"cookie_banner_partial.html",
}
