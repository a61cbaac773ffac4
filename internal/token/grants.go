package token

// DevOpsGrants is the grant vocabulary of directory-backed DevOps hosts.
type DevOpsGrants struct{}

// Grants implements Vocabulary.
func (DevOpsGrants) Grants() []string {
	return []string{
		"vso.build",
		"vso.build_execute",
		"vso.chat_manage",
		"vso.chat_write",
		"vso.code",
		"vso.code_manage",
		"vso.code_status",
		"vso.code_write",
		"vso.connected_server",
		"vso.entitlements",
		"vso.gallery",
		"vso.gallery_acquire",
		"vso.gallery_manage",
		"vso.gallery_publish",
		"vso.identity",
		"vso.loadtest",
		"vso.loadtest_write",
		"vso.packaging",
		"vso.packaging_manage",
		"vso.packaging_write",
		"vso.profile",
		"vso.profile_write",
		"vso.project",
		"vso.project_manage",
		"vso.project_write",
		"vso.release",
		"vso.release_execute",
		"vso.release_manage",
		"vso.test",
		"vso.test_write",
		"vso.work",
		"vso.work_write",
	}
}

// DevOpsScope is a scope on a DevOps host.
type DevOpsScope = Scope[DevOpsGrants]

var (
	DevOpsBuild          = Grant[DevOpsGrants]("vso.build")
	DevOpsBuildExecute   = Grant[DevOpsGrants]("vso.build_execute")
	DevOpsCode           = Grant[DevOpsGrants]("vso.code")
	DevOpsCodeManage     = Grant[DevOpsGrants]("vso.code_manage")
	DevOpsCodeStatus     = Grant[DevOpsGrants]("vso.code_status")
	DevOpsCodeWrite      = Grant[DevOpsGrants]("vso.code_write")
	DevOpsIdentity       = Grant[DevOpsGrants]("vso.identity")
	DevOpsPackaging      = Grant[DevOpsGrants]("vso.packaging")
	DevOpsPackagingWrite = Grant[DevOpsGrants]("vso.packaging_write")
	DevOpsProfile        = Grant[DevOpsGrants]("vso.profile")
	DevOpsProject        = Grant[DevOpsGrants]("vso.project")
	DevOpsWork           = Grant[DevOpsGrants]("vso.work")
)

// DevOpsGitScope is requested for personal tokens used by git.
var DevOpsGitScope = Combine(DevOpsCodeWrite, DevOpsPackagingWrite)

// GitHubGrants is the grant vocabulary of the source-hosting service.
type GitHubGrants struct{}

// Grants implements Vocabulary.
func (GitHubGrants) Grants() []string {
	return []string{
		"admin:gpg_key",
		"admin:org",
		"admin:org_hook",
		"admin:public_key",
		"admin:repo_hook",
		"delete_repo",
		"gist",
		"notifications",
		"public_repo",
		"read:gpg_key",
		"read:org",
		"read:public_key",
		"read:repo_hook",
		"read:user",
		"repo",
		"repo:status",
		"repo_deployment",
		"user",
		"user:email",
		"user:follow",
		"workflow",
		"write:gpg_key",
		"write:org",
		"write:public_key",
		"write:repo_hook",
	}
}

// GitHubScope is a scope on the source-hosting service.
type GitHubScope = Scope[GitHubGrants]

var (
	GitHubGist       = Grant[GitHubGrants]("gist")
	GitHubPublicRepo = Grant[GitHubGrants]("public_repo")
	GitHubRepo       = Grant[GitHubGrants]("repo")
	GitHubUser       = Grant[GitHubGrants]("user")
	GitHubWorkflow   = Grant[GitHubGrants]("workflow")
)

// GitHubGitScope is requested for tokens used by git.
var GitHubGitScope = Combine(GitHubGist, GitHubRepo)
