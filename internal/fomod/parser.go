package fomod

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

const (
	infoFilename   = "info.xml"
	configFilename = "ModuleConfig.xml"
)

// ParseDirectory parses the installer under root. The fomod directory
// and both filenames are matched case-insensitively; authors ship
// FOMOD, Fomod and fomod interchangeably. info.xml is best-effort,
// ModuleConfig.xml is required.
func ParseDirectory(root string) (*Model, error) {
	dir, err := findFomodDir(root)
	if err != nil {
		return nil, err
	}

	model := &Model{}

	if path, ok := findFile(dir, infoFilename); ok {
		f, err := os.Open(path)
		if err == nil {
			info, err := ParseInfo(f)
			f.Close()
			if err == nil {
				model.Info = info
			}
		}
	}

	path, ok := findFile(dir, configFilename)
	if !ok {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoModuleConfig)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	config, err := ParseModuleConfig(f)
	if err != nil {
		return nil, err
	}
	model.Config = config

	return model, nil
}

func findFomodDir(root string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", root, err)
	}

	for _, entry := range entries {
		if entry.IsDir() && strings.EqualFold(entry.Name(), "fomod") {
			return filepath.Join(root, entry.Name()), nil
		}
	}

	// The tree may already be the fomod directory itself, as when the
	// extractor strips nothing and the archive has no wrapper folder.
	if _, ok := findFile(root, configFilename); ok {
		return root, nil
	}

	return "", fmt.Errorf("%s: %w", root, ErrNoFomodDir)
}

func findFile(dir, name string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(entry.Name(), name) {
			return filepath.Join(dir, entry.Name()), true
		}
	}
	return "", false
}

func newDecoder(r io.Reader) *xml.Decoder {
	d := xml.NewDecoder(r)
	// Honors the XML encoding declaration; many installers ship
	// utf-16 or windows-1252.
	d.CharsetReader = charset.NewReaderLabel
	return d
}

// ParseInfo parses an info.xml document.
func ParseInfo(r io.Reader) (*Info, error) {
	var raw xmlInfo
	if err := newDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: info.xml: %v", ErrInvalidXML, err)
	}

	return &Info{
		Name:        strings.TrimSpace(raw.Name),
		Author:      strings.TrimSpace(raw.Author),
		Version:     strings.TrimSpace(raw.Version),
		Description: strings.TrimSpace(raw.Description),
		Website:     strings.TrimSpace(raw.Website),
		ID:          strings.TrimSpace(raw.ID),
	}, nil
}

// ParseModuleConfig parses a ModuleConfig.xml document.
func ParseModuleConfig(r io.Reader) (*ModuleConfig, error) {
	var raw xmlModuleConfig
	if err := newDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: ModuleConfig.xml: %v", ErrInvalidXML, err)
	}

	name := strings.TrimSpace(raw.ModuleName)
	if name == "" {
		return nil, ErrMissingModuleName
	}

	config := &ModuleConfig{
		ModuleName:         name,
		ModuleDependencies: convertDependency(raw.ModuleDependencies),
	}

	if raw.ModuleImage != nil {
		config.ModuleImage = &HeaderImage{
			Path:     raw.ModuleImage.Path,
			ShowFade: parseBool(raw.ModuleImage.ShowFade),
			Height:   parseInt(raw.ModuleImage.Height),
		}
	}
	if raw.RequiredInstallFiles != nil {
		config.RequiredInstallFiles = convertFileList(raw.RequiredInstallFiles)
	}

	if raw.InstallSteps != nil {
		for _, step := range raw.InstallSteps.Steps {
			converted := InstallStep{
				Name:    strings.TrimSpace(step.Name),
				Visible: convertDependency(step.Visible),
			}
			if step.OptionalFileGroups != nil {
				for _, group := range step.OptionalFileGroups.Groups {
					g, err := convertGroup(group)
					if err != nil {
						return nil, err
					}
					converted.OptionGroups = append(converted.OptionGroups, g)
				}
			}
			config.InstallSteps = append(config.InstallSteps, converted)
		}
	}

	if raw.ConditionalFileInstalls != nil && raw.ConditionalFileInstalls.Patterns != nil {
		for _, pattern := range raw.ConditionalFileInstalls.Patterns.Patterns {
			config.ConditionalFileInstalls = append(config.ConditionalFileInstalls, ConditionalInstallItem{
				Dependencies: convertDependency(pattern.Dependencies),
				Files:        convertFileList(pattern.Files),
			})
		}
	}

	return config, nil
}

func convertGroup(raw xmlGroup) (OptionGroup, error) {
	group := OptionGroup{
		Name: strings.TrimSpace(raw.Name),
		Type: GroupType(strings.TrimSpace(raw.Type)),
	}
	if raw.Plugins == nil {
		return group, nil
	}

	for _, plugin := range raw.Plugins.Plugins {
		converted := Plugin{
			Name:        strings.TrimSpace(plugin.Name),
			Description: strings.TrimSpace(plugin.Description),
		}
		if plugin.Image != nil {
			converted.Image = plugin.Image.Path
		}
		if plugin.Files != nil {
			converted.Files = convertFileList(plugin.Files)
		}
		if plugin.ConditionFlags != nil {
			for _, flag := range plugin.ConditionFlags.Flags {
				converted.ConditionFlags = append(converted.ConditionFlags, ConditionFlag{
					Name:  strings.TrimSpace(flag.Name),
					Value: strings.TrimSpace(flag.Value),
				})
			}
		}

		descriptor, err := convertTypeDescriptor(plugin.TypeDescriptor, converted.Name)
		if err != nil {
			return group, err
		}
		converted.TypeDescriptor = descriptor

		group.Plugins = append(group.Plugins, converted)
	}

	return group, nil
}

func convertTypeDescriptor(raw *xmlTypeDescriptor, pluginName string) (*TypeDescriptor, error) {
	if raw == nil {
		return nil, nil
	}

	descriptor := &TypeDescriptor{}
	if raw.Type != nil {
		descriptor.Type = PluginType(strings.TrimSpace(raw.Type.Name))
	}

	if raw.DependencyType != nil {
		dep := &DependencyPluginType{}
		if raw.DependencyType.DefaultType != nil {
			dep.DefaultType = PluginType(strings.TrimSpace(raw.DependencyType.DefaultType.Name))
		}
		if raw.DependencyType.Patterns != nil {
			for _, pattern := range raw.DependencyType.Patterns.Patterns {
				converted := DependencyPattern{
					Dependencies: convertDependency(pattern.Dependencies),
				}
				if pattern.Type != nil {
					converted.Type = PluginType(strings.TrimSpace(pattern.Type.Name))
				}
				dep.Patterns = append(dep.Patterns, converted)
			}
		}
		if dep.DefaultType == "" && len(dep.Patterns) > 0 {
			return nil, fmt.Errorf("%w: dependencyType for plugin %q has patterns but no defaultType", ErrInvalidXML, pluginName)
		}
		descriptor.DependencyType = dep
	}

	return descriptor, nil
}

func convertFileList(raw *xmlFileList) *FileList {
	if raw == nil {
		return nil
	}
	list := &FileList{}
	for _, f := range raw.Files {
		list.Files = append(list.Files, convertFileInstall(f))
	}
	for _, f := range raw.Folders {
		list.Folders = append(list.Folders, convertFileInstall(f))
	}
	return list
}

func convertFileInstall(raw xmlFileInstall) FileInstall {
	return FileInstall{
		Source:          raw.Source,
		Destination:     raw.Destination,
		Priority:        parseInt(raw.Priority),
		AlwaysInstall:   parseBool(raw.AlwaysInstall),
		InstallIfUsable: parseBool(raw.InstallIfUsable),
	}
}

// convertDependency renders a raw dependency element as a tagged tree.
// An element with exactly one child collapses to that child; authors
// routinely wrap a single condition in a dependencies element.
func convertDependency(raw *xmlDependencies) *Dependency {
	if raw == nil || len(raw.items) == 0 {
		return nil
	}
	if len(raw.items) == 1 {
		return convertDependencyItem(raw.items[0])
	}

	dep := &Dependency{
		Kind:     DependencyComposite,
		Operator: DependencyOperator(raw.operator),
	}
	for _, item := range raw.items {
		if child := convertDependencyItem(item); child != nil {
			dep.Children = append(dep.Children, *child)
		}
	}
	return dep
}

func convertDependencyItem(item xmlDependencyItem) *Dependency {
	switch {
	case item.nested != nil:
		return convertDependency(item.nested)
	case item.file != nil:
		return &Dependency{Kind: DependencyFile, File: item.file}
	case item.flag != nil:
		return &Dependency{Kind: DependencyFlag, Flag: item.flag}
	case item.game != nil:
		return &Dependency{Kind: DependencyGame, Game: item.game}
	case item.fomm != nil:
		return &Dependency{Kind: DependencyFomm, Fomm: item.fomm}
	}
	return nil
}

// parseBool interprets the schema's permissive booleans: true, 1 and
// yes in any case are true, everything else is false.
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// parseInt returns 0 for missing or malformed numeric attributes.
func parseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
