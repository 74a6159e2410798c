package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/deppfellow/password-admin/internal/audit"
	"github.com/deppfellow/password-admin/internal/errs"
	"github.com/deppfellow/password-admin/internal/identity"
	"github.com/deppfellow/password-admin/internal/repository"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRoles struct {
	records map[string]*repository.UserRecord
	err     error
	panics  bool
	calls   int
}

func (f *fakeRoles) GetUserRecord(_ context.Context, uid string) (*repository.UserRecord, error) {
	f.calls++
	if f.panics {
		panic("role store exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.records[uid], nil
}

type setCall struct {
	uid      string
	password string
}

type fakeVerifier struct {
	tokens    map[string]string
	verifyErr error
	setErr    error
	sets      []setCall
}

func (f *fakeVerifier) VerifyToken(_ context.Context, token string) (*identity.Token, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	uid, ok := f.tokens[token]
	if !ok {
		return nil, fmt.Errorf("%w: unknown token", identity.ErrInvalidToken)
	}
	return &identity.Token{UID: uid}, nil
}

func (f *fakeVerifier) SetPassword(_ context.Context, uid, password string) error {
	f.sets = append(f.sets, setCall{uid: uid, password: password})
	return f.setErr
}

type fakeNotifier struct {
	uids []string
	err  error
}

func (f *fakeNotifier) EnqueuePasswordChanged(_ context.Context, uid string) error {
	f.uids = append(f.uids, uid)
	return f.err
}

type recordingResponder struct {
	result *PasswordChangeResult
	err    *errs.Error
}

func (r *recordingResponder) Success(result *PasswordChangeResult) error {
	r.result = result
	return nil
}

func (r *recordingResponder) Fail(err *errs.Error) error {
	r.err = err
	return nil
}

type fixture struct {
	roles    *fakeRoles
	verifier *fakeVerifier
	notifier *fakeNotifier
	logs     *bytes.Buffer
	svc      *PasswordService
}

func newFixture() *fixture {
	f := &fixture{
		roles: &fakeRoles{records: map[string]*repository.UserRecord{
			"admin-1": {Role: "admin"},
			"user-1":  {Role: "member"},
			"blank-1": {Role: ""},
		}},
		verifier: &fakeVerifier{tokens: map[string]string{
			"admin-token": "admin-1",
			"user-token":  "user-1",
		}},
		notifier: &fakeNotifier{},
		logs:     &bytes.Buffer{},
	}
	log := zerolog.New(f.logs)
	f.svc = NewPasswordService(f.roles, f.verifier, f.notifier, audit.New(log), &log)
	return f
}

func payload(userID, newPassword string) Decoder {
	return func(req *PasswordChangeRequest) error {
		req.UserID = userID
		req.NewPassword = newPassword
		return nil
	}
}

func jsonPayload(raw string) Decoder {
	return func(req *PasswordChangeRequest) error {
		return json.Unmarshal([]byte(raw), req)
	}
}

func TestExecute_AdminUpdatesPassword(t *testing.T) {
	f := newFixture()
	out := &recordingResponder{}

	err := f.svc.Execute(context.Background(), &Caller{UID: "admin-1"}, payload("u1", "secret1"), out)
	require.NoError(t, err)

	require.Nil(t, out.err)
	require.NotNil(t, out.result)
	assert.True(t, out.result.Success)
	assert.Equal(t, "Password updated successfully", out.result.Message)

	assert.Equal(t, []setCall{{uid: "u1", password: "secret1"}}, f.verifier.sets)
	assert.Equal(t, []string{"u1"}, f.notifier.uids)
	assert.Contains(t, f.logs.String(), audit.ActionUpdateUserPassword)
}

func TestExecute_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		caller   *Caller
		decode   Decoder
		kind     errs.Kind
		reason   errs.Reason
		hasField string
	}{
		{
			name:   "no caller",
			caller: nil,
			decode: payload("u1", "secret1"),
			kind:   errs.KindUnauthenticated,
			reason: errs.ReasonMissingCredentials,
		},
		{
			name:   "caller without record",
			caller: &Caller{UID: "ghost"},
			decode: payload("u1", "secret1"),
			kind:   errs.KindPermissionDenied,
			reason: errs.ReasonNotAdmin,
		},
		{
			name:   "caller is not admin",
			caller: &Caller{UID: "user-1"},
			decode: payload("u1", "secret1"),
			kind:   errs.KindPermissionDenied,
			reason: errs.ReasonNotAdmin,
		},
		{
			name:   "caller has empty role",
			caller: &Caller{UID: "blank-1"},
			decode: payload("u1", "secret1"),
			kind:   errs.KindPermissionDenied,
			reason: errs.ReasonNotAdmin,
		},
		{
			name:     "missing user id",
			caller:   &Caller{UID: "admin-1"},
			decode:   payload("", "secret1"),
			kind:     errs.KindInvalidArgument,
			reason:   errs.ReasonMissingFields,
			hasField: "userId",
		},
		{
			name:     "missing password",
			caller:   &Caller{UID: "admin-1"},
			decode:   jsonPayload(`{"userId":"u1"}`),
			kind:     errs.KindInvalidArgument,
			reason:   errs.ReasonMissingFields,
			hasField: "newPassword",
		},
		{
			name:     "empty payload",
			caller:   &Caller{UID: "admin-1"},
			decode:   nil,
			kind:     errs.KindInvalidArgument,
			reason:   errs.ReasonMissingFields,
			hasField: "userId",
		},
		{
			name:     "short password",
			caller:   &Caller{UID: "admin-1"},
			decode:   payload("u1", "abc"),
			kind:     errs.KindInvalidArgument,
			reason:   errs.ReasonPasswordTooShort,
			hasField: "newPassword",
		},
		{
			name:   "five code points",
			caller: &Caller{UID: "admin-1"},
			decode: payload("u1", "ñññññ"),
			kind:   errs.KindInvalidArgument,
			reason: errs.ReasonPasswordTooShort,
		},
		{
			name:   "malformed payload",
			caller: &Caller{UID: "admin-1"},
			decode: jsonPayload(`{"userId":42}`),
			kind:   errs.KindInvalidArgument,
			reason: errs.ReasonMalformedPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			out := &recordingResponder{}

			require.NoError(t, f.svc.Execute(context.Background(), tt.caller, tt.decode, out))

			assert.Nil(t, out.result)
			require.NotNil(t, out.err)
			assert.Equal(t, tt.kind, out.err.Kind)
			assert.Equal(t, tt.reason, out.err.Reason)
			assert.Empty(t, f.verifier.sets, "password must not be updated")
			assert.Empty(t, f.notifier.uids)

			if tt.hasField != "" {
				var fields []string
				for _, fe := range out.err.Fields {
					fields = append(fields, fe.Field)
				}
				assert.Contains(t, fields, tt.hasField)
			}
		})
	}
}

func TestExecute_SixCodePointsAccepted(t *testing.T) {
	f := newFixture()
	out := &recordingResponder{}

	require.NoError(t, f.svc.Execute(context.Background(), &Caller{UID: "admin-1"}, payload("u1", "ññññññ"), out))
	assert.NotNil(t, out.result)
	assert.Len(t, f.verifier.sets, 1)
}

func TestExecute_AstralCharactersCountOnce(t *testing.T) {
	f := newFixture()
	out := &recordingResponder{}

	require.NoError(t, f.svc.Execute(context.Background(), &Caller{UID: "admin-1"}, payload("u1", "😀😀😀"), out))
	require.NotNil(t, out.err)
	assert.Equal(t, errs.ReasonPasswordTooShort, out.err.Reason)
	assert.Empty(t, f.verifier.sets)
}

func TestExecute_RoleCheckBeforeDecode(t *testing.T) {
	f := newFixture()
	out := &recordingResponder{}
	decoded := false
	decode := func(*PasswordChangeRequest) error {
		decoded = true
		return nil
	}

	require.NoError(t, f.svc.Execute(context.Background(), &Caller{UID: "user-1"}, decode, out))
	assert.False(t, decoded)
	assert.Equal(t, errs.KindPermissionDenied, out.err.Kind)
}

func TestExecute_DelegateFailure(t *testing.T) {
	f := newFixture()
	f.verifier.setErr = errors.New("There is no user record corresponding to the provided identifier.")
	out := &recordingResponder{}

	require.NoError(t, f.svc.Execute(context.Background(), &Caller{UID: "admin-1"}, payload("missing-user", "secret1"), out))

	require.NotNil(t, out.err)
	assert.Equal(t, errs.KindInternal, out.err.Kind)
	assert.Equal(t, "There is no user record corresponding to the provided identifier.", out.err.CauseMessage())
	assert.Len(t, f.verifier.sets, 1)
	assert.Empty(t, f.notifier.uids)
	assert.Contains(t, f.logs.String(), "Error updating user password")
}

func TestExecute_RoleStoreFailure(t *testing.T) {
	f := newFixture()
	f.roles.err = errors.New("firestore unavailable")
	out := &recordingResponder{}

	require.NoError(t, f.svc.Execute(context.Background(), &Caller{UID: "admin-1"}, payload("u1", "secret1"), out))
	assert.Equal(t, errs.KindInternal, out.err.Kind)
	assert.Empty(t, f.verifier.sets)
}

func TestExecute_PanicBecomesInternal(t *testing.T) {
	f := newFixture()
	f.roles.panics = true
	out := &recordingResponder{}

	assert.NotPanics(t, func() {
		require.NoError(t, f.svc.Execute(context.Background(), &Caller{UID: "admin-1"}, payload("u1", "secret1"), out))
	})
	require.NotNil(t, out.err)
	assert.Equal(t, errs.KindInternal, out.err.Kind)
	assert.Contains(t, out.err.CauseMessage(), "role store exploded")
}

func TestExecute_NotifierFailureIsIgnored(t *testing.T) {
	f := newFixture()
	f.notifier.err = errors.New("redis down")
	out := &recordingResponder{}

	require.NoError(t, f.svc.Execute(context.Background(), &Caller{UID: "admin-1"}, payload("u1", "secret1"), out))
	assert.NotNil(t, out.result)
	assert.Nil(t, out.err)
	assert.Contains(t, f.logs.String(), "failed to enqueue password changed notification")
}

func TestExecute_WithoutNotifier(t *testing.T) {
	f := newFixture()
	svc := NewPasswordService(f.roles, f.verifier, nil, nil, nil)
	out := &recordingResponder{}

	require.NoError(t, svc.Execute(context.Background(), &Caller{UID: "admin-1"}, payload("u1", "secret1"), out))
	assert.NotNil(t, out.result)
}

func TestAuthenticate(t *testing.T) {
	t.Run("valid bearer token", func(t *testing.T) {
		f := newFixture()
		caller, err := f.svc.Authenticate(context.Background(), "Bearer admin-token")
		require.NoError(t, err)
		assert.Equal(t, "admin-1", caller.UID)
	})

	t.Run("missing header", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Authenticate(context.Background(), "")
		e := errs.From(err)
		assert.Equal(t, errs.KindUnauthenticated, e.Kind)
		assert.Equal(t, errs.ReasonMissingCredentials, e.Reason)
	})

	t.Run("invalid token", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Authenticate(context.Background(), "Bearer forged")
		e := errs.From(err)
		assert.Equal(t, errs.KindUnauthenticated, e.Kind)
		assert.Equal(t, errs.ReasonInvalidCredentials, e.Reason)
	})

	t.Run("platform failure", func(t *testing.T) {
		f := newFixture()
		f.verifier.verifyErr = errors.New("certificate fetch failed")
		_, err := f.svc.Authenticate(context.Background(), "Bearer admin-token")
		assert.Equal(t, errs.KindInternal, errs.From(err).Kind)
	})
}
