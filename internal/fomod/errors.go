package fomod

import "errors"

var (
	// ErrNoFomodDir is returned when no fomod directory exists under the
	// extracted tree.
	ErrNoFomodDir = errors.New("no fomod directory found")
	// ErrNoModuleConfig is returned when the fomod directory lacks a
	// ModuleConfig.xml.
	ErrNoModuleConfig = errors.New("ModuleConfig.xml not found")
	// ErrInvalidXML is returned for malformed or structurally invalid
	// installer XML.
	ErrInvalidXML = errors.New("invalid fomod XML")
	// ErrMissingModuleName is returned when ModuleConfig.xml has no
	// moduleName. Everything else is best-effort.
	ErrMissingModuleName = errors.New("moduleName missing or empty")
)
