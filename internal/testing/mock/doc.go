// Package mock provides fake identity providers for tests.
//
// Each fake runs on an httptest server and records what it was asked:
//
//   - IdentityServer: an OAuth login service with per-tenant discovery,
//     auto-approving authorization, and the authorization_code,
//     refresh_token and client_credentials (client assertion) grants.
//   - DevOpsServer: a DevOps organization answering the tenant probe,
//     the location service, personal token creation and connection data.
//   - GitHubServer: the GitHub REST API subset used for logons, including
//     two-factor challenges.
//   - GitServer: a smart-HTTP git remote that checks basic auth.
package mock
