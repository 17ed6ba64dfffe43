package server

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientValidate(t *testing.T) {
	token := []byte{1, 2, 3, 4}
	secret := make([]byte, 16)

	testCases := []struct {
		desc   string
		client Client
		online bool
		valid  bool
	}{
		{desc: "Fresh connection", client: Client{State: Handshaking}, online: true, valid: true},
		{desc: "Status", client: Client{State: Status}, online: true, valid: true},
		{desc: "Status with username", client: Client{State: Status, Username: "Notch"}, online: true},
		{desc: "Handshaking with secret", client: Client{State: Handshaking, SharedSecret: secret}, online: true},
		{desc: "Login before Login Start", client: Client{State: Login}, online: true, valid: true},
		{desc: "Login awaiting response", client: Client{State: Login, Username: "Notch", VerifyToken: token}, online: true, valid: true},
		{desc: "Login awaiting session", client: Client{State: Login, Username: "Notch", SharedSecret: secret}, online: true, valid: true},
		{desc: "Login token and secret", client: Client{State: Login, Username: "Notch", VerifyToken: token, SharedSecret: secret}, online: true},
		{desc: "Login token without username", client: Client{State: Login, VerifyToken: token}, online: true},
		{desc: "Play online", client: Client{State: Play, Username: "Notch", SharedSecret: secret, UUID: uuid.New()}, online: true, valid: true},
		{desc: "Play online without secret", client: Client{State: Play, Username: "Notch"}, online: true},
		{desc: "Play offline", client: Client{State: Play, Username: "Steve"}, online: false, valid: true},
		{desc: "Play offline with secret", client: Client{State: Play, Username: "Steve", SharedSecret: secret}, online: false},
		{desc: "Play without username", client: Client{State: Play, SharedSecret: secret}, online: true},
		{desc: "Play with token", client: Client{State: Play, Username: "Notch", SharedSecret: secret, VerifyToken: token}, online: true},
		{desc: "Unknown state", client: Client{State: NetworkState(7)}, online: true},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			err := tC.client.Validate(tC.online)
			if tC.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidClient)
			}
		})
	}
}

func TestClientSetState(t *testing.T) {
	c := &Client{State: Handshaking}

	require.NoError(t, c.setState(Login))
	assert.ErrorIs(t, c.setState(Status), ErrIllegalTransition)
	assert.Equal(t, Login, c.State)

	require.NoError(t, c.setState(Play))
	assert.ErrorIs(t, c.setState(Play), ErrIllegalTransition)
}

func TestValidUsername(t *testing.T) {
	for _, name := range []string{"Notch", "jeb_", "a", "Sixteen_Chars_Ok"} {
		assert.True(t, validUsername(name), name)
	}
	for _, name := range []string{"", "has space", "Seventeen_Chars_X", "naïve", "tab\t"} {
		assert.False(t, validUsername(name), name)
	}
}

func TestKickError(t *testing.T) {
	err := kick("Invalid verify token", ErrVerifyTokenMismatch)
	assert.ErrorIs(t, err, ErrVerifyTokenMismatch)
	assert.Equal(t, "kicked: Invalid verify token: verify token mismatch", err.Error())
	assert.JSONEq(t, `{"text":"Invalid verify token"}`, err.Reason.JSON())
}
