package nexus

// GraphQL v2 API types. The graphql tags drive query construction; the
// json tags shape the payloads the analysis layer caches.

// Game identifies the game a collection targets.
type Game struct {
	ID         int    `graphql:"id" json:"id"`
	DomainName string `graphql:"domainName" json:"domainName"`
	Name       string `graphql:"name" json:"name"`
}

// CollectionUser is the curator of a collection.
type CollectionUser struct {
	Name string `graphql:"name" json:"name"`
}

// RevisionRef is a lightweight pointer to a published revision.
type RevisionRef struct {
	RevisionNumber int `graphql:"revisionNumber" json:"revisionNumber"`
}

// Collection is a curated, versioned mod set.
type Collection struct {
	ID                      int            `graphql:"id" json:"id"`
	Slug                    string         `graphql:"slug" json:"slug"`
	Name                    string         `graphql:"name" json:"name"`
	Summary                 string         `graphql:"summary" json:"summary"`
	Game                    Game           `graphql:"game" json:"game"`
	User                    CollectionUser `graphql:"user" json:"user"`
	LatestPublishedRevision RevisionRef    `graphql:"latestPublishedRevision" json:"latestPublishedRevision"`
}

// Revision is one immutable snapshot of a collection.
type Revision struct {
	ID             int    `graphql:"id" json:"id"`
	RevisionNumber int    `graphql:"revisionNumber" json:"revisionNumber"`
	CreatedAt      string `graphql:"createdAt" json:"createdAt"`
	UpdatedAt      string `graphql:"updatedAt" json:"updatedAt"`
	FileSize       int64  `graphql:"fileSize" json:"fileSize"`
}

// ModInfo identifies the mod a file belongs to.
type ModInfo struct {
	ModID int    `graphql:"modId" json:"modId"`
	Name  string `graphql:"name" json:"name"`
}

// ModFileInfo is one downloadable file within a revision.
type ModFileInfo struct {
	FileID int      `graphql:"fileId" json:"fileId"`
	Name   string   `graphql:"name" json:"name"`
	Size   int64    `graphql:"size" json:"size"`
	Mod    *ModInfo `graphql:"mod" json:"mod"`
}

// ModFileReference ties a file to its role in the revision.
type ModFileReference struct {
	Optional bool         `graphql:"optional" json:"optional"`
	File     *ModFileInfo `graphql:"file" json:"file"`
}

// RevisionCollection carries the owning collection's identity alongside
// a revision, so one query yields the game domain needed for downloads.
type RevisionCollection struct {
	Slug string `graphql:"slug" json:"slug"`
	Name string `graphql:"name" json:"name"`
	Game Game   `graphql:"game" json:"game"`
}

// RevisionDetails is exactly what can be downloaded for one snapshot.
type RevisionDetails struct {
	ID             int                `graphql:"id" json:"id"`
	RevisionNumber int                `graphql:"revisionNumber" json:"revisionNumber"`
	Collection     RevisionCollection `graphql:"collection" json:"collection"`
	ModFiles       []ModFileReference `graphql:"modFiles" json:"modFiles"`
}

// DownloadLink is one time-limited CDN URL from the REST endpoint.
type DownloadLink struct {
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
	URI       string `json:"URI"`
}
