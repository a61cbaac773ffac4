package resolve

import (
	"context"
	"errors"

	"credmgr/internal/authority"
	"credmgr/internal/config"
	"credmgr/internal/secret"
	"credmgr/internal/target"
)

// calls counts the capability invocations of a fake authority.
type calls struct {
	get            int
	validate       int
	validOK        int
	refresh        int
	noninteractive int
	interactive    int
	prompt         int
	deleted        int
}

// fakeBase implements the common lifecycle over a real store. valid
// decides which passwords the fake provider accepts.
type fakeBase struct {
	kind  authority.Kind
	store *secret.Store
	valid func(secret.Credential) bool
	calls calls
}

func newFakeBase(kind authority.Kind) *fakeBase {
	return &fakeBase{
		kind:  kind,
		store: secret.NewStore(secret.NewMemoryVault(), "git", false),
		valid: func(secret.Credential) bool { return true },
	}
}

func (f *fakeBase) Kind() authority.Kind { return f.kind }

func (f *fakeBase) GetCredentials(t target.URI) (secret.Credential, error) {
	f.calls.get++
	return f.store.ReadCredential(t)
}

func (f *fakeBase) SetCredentials(t target.URI, c secret.Credential) error {
	return f.store.WriteCredential(t, c)
}

func (f *fakeBase) DeleteCredentials(t target.URI) error {
	f.calls.deleted++
	_, err := f.store.DeleteCredential(t)
	return err
}

func (f *fakeBase) ValidateCredentials(_ context.Context, _ target.URI, c secret.Credential) bool {
	f.calls.validate++
	ok := f.valid(c)
	if ok {
		f.calls.validOK++
	}
	return ok
}

type fakeBasic struct {
	*fakeBase
	prompted secret.Credential
	err      error
}

func (f *fakeBasic) PromptCredentials(_ context.Context, t target.URI) (bool, error) {
	f.calls.prompt++
	if f.err != nil {
		return false, f.err
	}
	if f.prompted.IsEmpty() {
		return false, nil
	}
	return true, f.SetCredentials(t, f.prompted)
}

// fakeOAuth writes issued credentials into the store like the DevOps
// authority does. A nil result function means the step produces nothing.
type fakeOAuth struct {
	*fakeBase
	refreshed      *secret.Credential
	noninteractive *secret.Credential
	interactive    *secret.Credential
}

func (f *fakeOAuth) issue(t target.URI, c *secret.Credential) (bool, error) {
	if c == nil {
		return false, nil
	}
	return true, f.SetCredentials(t, *c)
}

func (f *fakeOAuth) RefreshCredentials(_ context.Context, t target.URI, _ bool) (bool, error) {
	f.calls.refresh++
	return f.issue(t, f.refreshed)
}

func (f *fakeOAuth) NoninteractiveLogon(_ context.Context, t target.URI) (bool, error) {
	f.calls.noninteractive++
	return f.issue(t, f.noninteractive)
}

func (f *fakeOAuth) InteractiveLogon(_ context.Context, t target.URI) (bool, error) {
	f.calls.interactive++
	return f.issue(t, f.interactive)
}

type fakeGitHub struct {
	*fakeBase
	issued *secret.Credential
}

func (f *fakeGitHub) InteractiveLogon(_ context.Context, t target.URI) (secret.Credential, error) {
	f.calls.interactive++
	if f.issued == nil {
		return secret.Credential{}, errors.New("login refused")
	}
	return *f.issued, f.SetCredentials(t, *f.issued)
}

// fakeBinder hands out a fixed variant and counts detections.
type fakeBinder struct {
	variant   authority.Variant
	detection config.Detection
	detects   int
	bound     []config.Detection
}

func (b *fakeBinder) Detect(context.Context, *config.Operation) config.Detection {
	b.detects++
	return b.detection
}

func (b *fakeBinder) New(_ *config.Operation, det config.Detection) (authority.Variant, error) {
	b.bound = append(b.bound, det)
	return b.variant, nil
}

func credPtr(user, pass string) *secret.Credential {
	c := secret.NewCredential(user, pass)
	return &c
}
