package fomod

// GroupType is the selection constraint of an option group.
type GroupType string

const (
	GroupSelectAtLeastOne GroupType = "SelectAtLeastOne"
	GroupSelectAtMostOne  GroupType = "SelectAtMostOne"
	GroupSelectExactlyOne GroupType = "SelectExactlyOne"
	GroupSelectAll        GroupType = "SelectAll"
	GroupSelectAny        GroupType = "SelectAny"
)

// PluginType is the installation recommendation for one option.
type PluginType string

const (
	PluginRequired      PluginType = "Required"
	PluginOptional      PluginType = "Optional"
	PluginRecommended   PluginType = "Recommended"
	PluginNotUsable     PluginType = "NotUsable"
	PluginCouldBeUsable PluginType = "CouldBeUsable"
)

// FileState is the installed state a file dependency tests for.
type FileState string

const (
	FileStateMissing  FileState = "Missing"
	FileStateInactive FileState = "Inactive"
	FileStateActive   FileState = "Active"
)

// DependencyOperator combines the children of a composite dependency.
type DependencyOperator string

const (
	OperatorAnd DependencyOperator = "And"
	OperatorOr  DependencyOperator = "Or"
)

// DependencyKind tags the variant a Dependency node holds. Consumers
// switch on the kind instead of probing optional fields.
type DependencyKind string

const (
	DependencyComposite DependencyKind = "composite"
	DependencyFile      DependencyKind = "file"
	DependencyFlag      DependencyKind = "flag"
	DependencyGame      DependencyKind = "game"
	DependencyFomm      DependencyKind = "fomm"
)

// Dependency is one node of a condition tree: either a composite with
// an operator and ordered children, or exactly one of the four leaf
// conditions. Kind identifies which fields are populated.
type Dependency struct {
	Kind DependencyKind `json:"kind"`

	// Composite fields. Operator may be empty or carry an operator the
	// schema does not define; it is passed through untouched.
	Operator DependencyOperator `json:"operator,omitempty"`
	Children []Dependency       `json:"children,omitempty"`

	// Leaf fields, one per kind.
	File *FileDependency    `json:"fileDependency,omitempty"`
	Flag *FlagDependency    `json:"flagDependency,omitempty"`
	Game *VersionDependency `json:"gameDependency,omitempty"`
	Fomm *VersionDependency `json:"fommDependency,omitempty"`
}

// FileDependency is a condition on another mod file's install state.
type FileDependency struct {
	File  string    `json:"file"`
	State FileState `json:"state"`
}

// FlagDependency is a condition on a flag set by an earlier selection.
type FlagDependency struct {
	Flag  string `json:"flag"`
	Value string `json:"value"`
}

// VersionDependency is a minimum-version condition.
type VersionDependency struct {
	Version string `json:"version"`
}

// Info is the metadata from info.xml. All fields are optional.
type Info struct {
	Name        string `json:"name,omitempty"`
	Author      string `json:"author,omitempty"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`
	Website     string `json:"website,omitempty"`
	ID          string `json:"id,omitempty"`
}

// ModuleConfig is the parsed ModuleConfig.xml installer definition.
type ModuleConfig struct {
	ModuleName              string                   `json:"moduleName"`
	ModuleImage             *HeaderImage             `json:"moduleImage,omitempty"`
	ModuleDependencies      *Dependency              `json:"moduleDependencies,omitempty"`
	RequiredInstallFiles    *FileList                `json:"requiredInstallFiles,omitempty"`
	InstallSteps            []InstallStep            `json:"installSteps,omitempty"`
	ConditionalFileInstalls []ConditionalInstallItem `json:"conditionalFileInstalls,omitempty"`
}

// HeaderImage is the installer's banner image.
type HeaderImage struct {
	Path     string `json:"path"`
	ShowFade bool   `json:"showFade"`
	Height   int    `json:"height,omitempty"`
}

// InstallStep is one page of the installer wizard.
type InstallStep struct {
	Name         string        `json:"name"`
	Visible      *Dependency   `json:"visible,omitempty"`
	OptionGroups []OptionGroup `json:"optionGroups,omitempty"`
}

// OptionGroup is a set of plugins under one selection constraint.
type OptionGroup struct {
	Name    string    `json:"name"`
	Type    GroupType `json:"type"`
	Plugins []Plugin  `json:"plugins,omitempty"`
}

// Plugin is one selectable option within a group.
type Plugin struct {
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	Image          string          `json:"image,omitempty"`
	Files          *FileList       `json:"files,omitempty"`
	ConditionFlags []ConditionFlag `json:"conditionFlags,omitempty"`
	TypeDescriptor *TypeDescriptor `json:"typeDescriptor,omitempty"`
}

// TypeDescriptor determines a plugin's type, either flat or conditional.
type TypeDescriptor struct {
	Type           PluginType            `json:"type,omitempty"`
	DependencyType *DependencyPluginType `json:"dependencyType,omitempty"`
}

// DependencyPluginType resolves a plugin type from condition patterns,
// falling back to DefaultType when no pattern matches.
type DependencyPluginType struct {
	DefaultType PluginType          `json:"defaultType"`
	Patterns    []DependencyPattern `json:"patterns,omitempty"`
}

// DependencyPattern maps one condition tree to a plugin type.
type DependencyPattern struct {
	Dependencies *Dependency `json:"dependencies"`
	Type         PluginType  `json:"type"`
}

// ConditionFlag is a flag set when its plugin is selected.
type ConditionFlag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// FileList holds the files and folders an option installs.
type FileList struct {
	Files   []FileInstall `json:"files,omitempty"`
	Folders []FileInstall `json:"folders,omitempty"`
}

// FileInstall is one file or folder copy instruction.
type FileInstall struct {
	Source          string `json:"source"`
	Destination     string `json:"destination,omitempty"`
	Priority        int    `json:"priority,omitempty"`
	AlwaysInstall   bool   `json:"alwaysInstall,omitempty"`
	InstallIfUsable bool   `json:"installIfUsable,omitempty"`
}

// ConditionalInstallItem installs a file list when its condition holds.
type ConditionalInstallItem struct {
	Dependencies *Dependency `json:"dependencies"`
	Files        *FileList   `json:"files"`
}

// Model is the complete parsed installer: optional info.xml metadata
// plus the required ModuleConfig.xml.
type Model struct {
	Info   *Info         `json:"info,omitempty"`
	Config *ModuleConfig `json:"config"`
}
