package fomod

import (
	"encoding/xml"
	"strings"
)

// Raw decoding targets for the two installer documents. Everything is
// kept as strings here; normalization happens during conversion.

type xmlInfo struct {
	XMLName     xml.Name `xml:"fomod"`
	Name        string   `xml:"Name"`
	Author      string   `xml:"Author"`
	Version     string   `xml:"Version"`
	Description string   `xml:"Description"`
	Website     string   `xml:"Website"`
	ID          string   `xml:"Id"`
}

type xmlModuleConfig struct {
	XMLName                 xml.Name                `xml:"config"`
	ModuleName              string                  `xml:"moduleName"`
	ModuleImage             *xmlHeaderImage         `xml:"moduleImage"`
	ModuleDependencies      *xmlDependencies        `xml:"moduleDependencies"`
	RequiredInstallFiles    *xmlFileList            `xml:"requiredInstallFiles"`
	InstallSteps            *xmlInstallSteps        `xml:"installSteps"`
	ConditionalFileInstalls *xmlConditionalInstalls `xml:"conditionalFileInstalls"`
}

type xmlHeaderImage struct {
	Path     string `xml:"path,attr"`
	ShowFade string `xml:"showFade,attr"`
	Height   string `xml:"height,attr"`
}

type xmlInstallSteps struct {
	Order string           `xml:"order,attr"`
	Steps []xmlInstallStep `xml:"installStep"`
}

type xmlInstallStep struct {
	Name               string           `xml:"name,attr"`
	Visible            *xmlDependencies `xml:"visible"`
	OptionalFileGroups *xmlGroups       `xml:"optionalFileGroups"`
}

type xmlGroups struct {
	Order  string     `xml:"order,attr"`
	Groups []xmlGroup `xml:"group"`
}

type xmlGroup struct {
	Name    string      `xml:"name,attr"`
	Type    string      `xml:"type,attr"`
	Plugins *xmlPlugins `xml:"plugins"`
}

type xmlPlugins struct {
	Order   string      `xml:"order,attr"`
	Plugins []xmlPlugin `xml:"plugin"`
}

type xmlPlugin struct {
	Name           string             `xml:"name,attr"`
	Description    string             `xml:"description"`
	Image          *xmlImage          `xml:"image"`
	Files          *xmlFileList       `xml:"files"`
	ConditionFlags *xmlConditionFlags `xml:"conditionFlags"`
	TypeDescriptor *xmlTypeDescriptor `xml:"typeDescriptor"`
}

type xmlImage struct {
	Path string `xml:"path,attr"`
}

type xmlConditionFlags struct {
	Flags []xmlFlag `xml:"flag"`
}

type xmlFlag struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type xmlTypeDescriptor struct {
	Type           *xmlTypeName       `xml:"type"`
	DependencyType *xmlDependencyType `xml:"dependencyType"`
}

type xmlTypeName struct {
	Name string `xml:"name,attr"`
}

type xmlDependencyType struct {
	DefaultType *xmlTypeName `xml:"defaultType"`
	Patterns    *xmlPatterns `xml:"patterns"`
}

type xmlPatterns struct {
	Patterns []xmlPattern `xml:"pattern"`
}

type xmlPattern struct {
	Dependencies *xmlDependencies `xml:"dependencies"`
	Type         *xmlTypeName     `xml:"type"`
}

type xmlFileList struct {
	Files   []xmlFileInstall `xml:"file"`
	Folders []xmlFileInstall `xml:"folder"`
}

type xmlFileInstall struct {
	Source          string `xml:"source,attr"`
	Destination     string `xml:"destination,attr"`
	Priority        string `xml:"priority,attr"`
	AlwaysInstall   string `xml:"alwaysInstall,attr"`
	InstallIfUsable string `xml:"installIfUsable,attr"`
}

type xmlConditionalInstalls struct {
	Patterns *xmlCondPatterns `xml:"patterns"`
}

type xmlCondPatterns struct {
	Patterns []xmlCondPattern `xml:"pattern"`
}

type xmlCondPattern struct {
	Dependencies *xmlDependencies `xml:"dependencies"`
	Files        *xmlFileList     `xml:"files"`
}

// xmlDependencyItem is one child of a dependency element, in document
// order. Exactly one field is set.
type xmlDependencyItem struct {
	file   *FileDependency
	flag   *FlagDependency
	game   *VersionDependency
	fomm   *VersionDependency
	nested *xmlDependencies
}

// xmlDependencies decodes any composite dependency element (visible,
// moduleDependencies, dependencies, prerequisites) preserving the
// document order of its children.
type xmlDependencies struct {
	operator string
	items    []xmlDependencyItem
}

func (x *xmlDependencies) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	x.operator = attrValue(start, "operator")

	for {
		token, err := d.Token()
		if err != nil {
			return err
		}

		switch tok := token.(type) {
		case xml.StartElement:
			switch {
			case strings.EqualFold(tok.Name.Local, "fileDependency"):
				x.items = append(x.items, xmlDependencyItem{file: &FileDependency{
					File:  attrValue(tok, "file"),
					State: FileState(strings.TrimSpace(attrValue(tok, "state"))),
				}})
				if err := d.Skip(); err != nil {
					return err
				}
			case strings.EqualFold(tok.Name.Local, "flagDependency"):
				x.items = append(x.items, xmlDependencyItem{flag: &FlagDependency{
					Flag:  attrValue(tok, "flag"),
					Value: attrValue(tok, "value"),
				}})
				if err := d.Skip(); err != nil {
					return err
				}
			case strings.EqualFold(tok.Name.Local, "gameDependency"):
				x.items = append(x.items, xmlDependencyItem{game: &VersionDependency{
					Version: attrValue(tok, "version"),
				}})
				if err := d.Skip(); err != nil {
					return err
				}
			case strings.EqualFold(tok.Name.Local, "fommDependency"):
				x.items = append(x.items, xmlDependencyItem{fomm: &VersionDependency{
					Version: attrValue(tok, "version"),
				}})
				if err := d.Skip(); err != nil {
					return err
				}
			case strings.EqualFold(tok.Name.Local, "dependencies"):
				nested := &xmlDependencies{}
				if err := d.DecodeElement(nested, &tok); err != nil {
					return err
				}
				x.items = append(x.items, xmlDependencyItem{nested: nested})
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

func attrValue(start xml.StartElement, name string) string {
	for _, attr := range start.Attr {
		if strings.EqualFold(attr.Name.Local, name) {
			return attr.Value
		}
	}
	return ""
}
