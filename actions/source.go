package actions

import "github.com/simon020286/pipegen/models"

var (
	githubRequired     = []string{"Repo", "Branch", "Owner", "OAuthToken"}
	codeCommitRequired = []string{"RepositoryName", "BranchName"}
	s3SourceRequired   = []string{"S3Bucket", "S3ObjectKey"}
)

// pollDisabled is the default for every source: changes are delivered by
// webhooks or events, not by polling
var pollDisabled = models.String("false")

// GitHubSource checks out a GitHub repository
type GitHubSource struct {
	Repo                 models.Value
	Branch               models.Value
	Owner                models.Value
	OAuthToken           models.Value
	PollForSourceChanges models.Value
	Extra                map[string]models.Value
}

func (GitHubSource) isConfig() {}

func (GitHubSource) TypeID() TypeID {
	return TypeID{Category: models.CategorySource, Owner: "ThirdParty", Provider: "GitHub", Version: "1"}
}

func (c GitHubSource) Fields() map[string]models.Value {
	return mergeFields(map[string]models.Value{
		"Repo":                 c.Repo,
		"Branch":               c.Branch,
		"Owner":                c.Owner,
		"OAuthToken":           c.OAuthToken,
		"PollForSourceChanges": c.PollForSourceChanges,
	}, c.Extra)
}

func validateGitHubSource(cfg map[string]models.Value) (Config, error) {
	if err := checkValues(cfg, githubRequired); err != nil {
		return nil, err
	}
	return GitHubSource{
		Repo:                 cfg["Repo"],
		Branch:               cfg["Branch"],
		Owner:                cfg["Owner"],
		OAuthToken:           cfg["OAuthToken"],
		PollForSourceChanges: optional(cfg, "PollForSourceChanges", pollDisabled),
		Extra:                extras(cfg, append(githubRequired, "PollForSourceChanges")...),
	}, nil
}

// CodeCommitSource checks out a CodeCommit repository branch
type CodeCommitSource struct {
	RepositoryName       models.Value
	BranchName           models.Value
	PollForSourceChanges models.Value
	Extra                map[string]models.Value
}

func (CodeCommitSource) isConfig() {}

func (CodeCommitSource) TypeID() TypeID {
	return TypeID{Category: models.CategorySource, Owner: "AWS", Provider: "CodeCommit", Version: "1"}
}

func (c CodeCommitSource) Fields() map[string]models.Value {
	return mergeFields(map[string]models.Value{
		"RepositoryName":       c.RepositoryName,
		"BranchName":           c.BranchName,
		"PollForSourceChanges": c.PollForSourceChanges,
	}, c.Extra)
}

func validateCodeCommitSource(cfg map[string]models.Value) (Config, error) {
	if err := checkValues(cfg, codeCommitRequired); err != nil {
		return nil, err
	}
	return CodeCommitSource{
		RepositoryName:       cfg["RepositoryName"],
		BranchName:           cfg["BranchName"],
		PollForSourceChanges: optional(cfg, "PollForSourceChanges", pollDisabled),
		Extra:                extras(cfg, append(codeCommitRequired, "PollForSourceChanges")...),
	}, nil
}

// S3Source reads a versioned object from a bucket
type S3Source struct {
	S3Bucket             models.Value
	S3ObjectKey          models.Value
	PollForSourceChanges models.Value
	Extra                map[string]models.Value
}

func (S3Source) isConfig() {}

func (S3Source) TypeID() TypeID {
	return TypeID{Category: models.CategorySource, Owner: "AWS", Provider: "S3", Version: "1"}
}

func (c S3Source) Fields() map[string]models.Value {
	return mergeFields(map[string]models.Value{
		"S3Bucket":             c.S3Bucket,
		"S3ObjectKey":          c.S3ObjectKey,
		"PollForSourceChanges": c.PollForSourceChanges,
	}, c.Extra)
}

func validateS3Source(cfg map[string]models.Value) (Config, error) {
	if err := checkValues(cfg, s3SourceRequired); err != nil {
		return nil, err
	}
	return S3Source{
		S3Bucket:             cfg["S3Bucket"],
		S3ObjectKey:          cfg["S3ObjectKey"],
		PollForSourceChanges: optional(cfg, "PollForSourceChanges", pollDisabled),
		Extra:                extras(cfg, append(s3SourceRequired, "PollForSourceChanges")...),
	}, nil
}
