package render

import "errors"

var (
	ErrTemplateNotFound = errors.New("render: template not found")
	ErrNoTemplates      = errors.New("render: no template source configured")
	ErrRenderFailed     = errors.New("render: execute template")
)
