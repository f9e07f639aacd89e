package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
)

// NoPlaylistsNotice is shown when the account has no playlists.
const NoPlaylistsNotice = "No playlists found for this account."

// State is a step of the callback flow.
type State int

const (
	AwaitingParams State = iota
	ValidatingState
	ExchangingToken
	FetchingProfile
	FetchingPlaylists
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case AwaitingParams:
		return "awaiting_params"
	case ValidatingState:
		return "validating_state"
	case ExchangingToken:
		return "exchanging_token"
	case FetchingProfile:
		return "fetching_profile"
	case FetchingPlaylists:
		return "fetching_playlists"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the flow can no longer move.
func (s State) Terminal() bool {
	return s == Ready || s == Failed
}

// predecessor lists the only state each non-terminal step may be entered from.
var predecessor = map[State]State{
	ValidatingState:   AwaitingParams,
	ExchangingToken:   ValidatingState,
	FetchingProfile:   ExchangingToken,
	FetchingPlaylists: FetchingProfile,
	Ready:             FetchingPlaylists,
}

// CallbackParams are the query parameters of the provider redirect.
type CallbackParams struct {
	Code             string `json:"code,omitempty"`
	State            string `json:"state,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"errorDescription,omitempty"`
}

// ParseCallbackParams reads the redirect parameters from q.
func ParseCallbackParams(q url.Values) CallbackParams {
	return CallbackParams{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}
}

// Presenter displays flow progress.
type Presenter interface {
	ShowStatus(state State, message string)
	ShowError(err error, params CallbackParams)
}

// Machine tracks the current [State] and rejects out-of-order transitions.
type Machine struct {
	state State
	err   error
}

// NewMachine returns a machine in [AwaitingParams].
func NewMachine() *Machine {
	return &Machine{state: AwaitingParams}
}

func (m *Machine) State() State { return m.state }

// Err is the failure cause once the machine is [Failed].
func (m *Machine) Err() error { return m.err }

// Advance moves to next, which must directly follow the current state.
func (m *Machine) Advance(next State) error {
	if m.state.Terminal() {
		return fmt.Errorf("%w: %s is terminal", shared.ErrInvalidTransition, m.state)
	}
	if next == Failed {
		return fmt.Errorf("%w: use Fail to enter %s", shared.ErrInvalidTransition, Failed)
	}
	if prev, ok := predecessor[next]; !ok || prev != m.state {
		return fmt.Errorf("%w: %s -> %s", shared.ErrInvalidTransition, m.state, next)
	}
	m.state = next
	return nil
}

// Fail moves to [Failed] from any non-terminal state.
func (m *Machine) Fail(err error) error {
	if m.state.Terminal() {
		return fmt.Errorf("%w: %s is terminal", shared.ErrInvalidTransition, m.state)
	}
	m.state = Failed
	m.err = err
	return nil
}

// Result is the outcome of one callback.
//
// On failure Params carries the raw code and state for manual recovery.
type Result struct {
	State     State                    `json:"-"`
	Params    CallbackParams           `json:"params"`
	Profile   *models.Profile          `json:"profile,omitempty"`
	Playlists []models.PlaylistSummary `json:"playlists"`
	Notice    string                   `json:"notice,omitempty"`
	Err       error                    `json:"-"`

	token *models.TokenSet
}

// OK reports whether the flow reached [Ready].
func (r *Result) OK() bool { return r.State == Ready }

// Token returns the access token on success.
func (r *Result) Token() *models.TokenSet { return r.token }

// CallbackHandler runs the callback flow from parameter validation to the playlist list.
type CallbackHandler struct {
	clientID  string
	store     FlowStore
	exchanger Exchanger
	service   services.Service
	presenter Presenter
	logger    *log.Logger
}

// CallbackOpts configures a [CallbackHandler].
type CallbackOpts struct {
	Config    shared.SpotifyConfig
	Store     FlowStore
	Exchanger Exchanger
	Service   services.Service
	Presenter Presenter
	Logger    *log.Logger
}

// NewCallbackHandler creates a handler. A nil presenter discards status updates.
func NewCallbackHandler(opts CallbackOpts) *CallbackHandler {
	if opts.Presenter == nil {
		opts.Presenter = discardPresenter{}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &CallbackHandler{
		clientID:  opts.Config.ClientIDOrEmpty(),
		store:     opts.Store,
		exchanger: opts.Exchanger,
		service:   opts.Service,
		presenter: opts.Presenter,
		logger:    shared.WithLogger(opts.Logger, "component", "callback"),
	}
}

// Handle runs one callback for flowID.
//
// The token endpoint is contacted only after the state nonce matches the stored one.
// Flow state is deleted after a successful exchange and the token is stored under flowID.
func (h *CallbackHandler) Handle(ctx context.Context, flowID string, params CallbackParams) *Result {
	m := NewMachine()
	res := &Result{Params: params}
	logger := shared.WithLogger(h.logger, "flow", flowID)

	fail := func(err error) *Result {
		m.Fail(err)
		res.State, res.Err = m.State(), err
		logger.Warn("authorization failed", "error", err)
		h.presenter.ShowError(err, params)
		return res
	}
	step := func(next State, message string) bool {
		if err := m.Advance(next); err != nil {
			fail(err)
			return false
		}
		h.presenter.ShowStatus(next, message)
		return true
	}

	switch {
	case params.Error != "":
		desc := params.Error
		if params.ErrorDescription != "" {
			desc += ": " + params.ErrorDescription
		}
		return fail(fmt.Errorf("%w: %s", shared.ErrProviderDenied, desc))
	case params.Code == "":
		return fail(shared.ErrNoCode)
	}

	if !step(ValidatingState, "Validating authorization response...") {
		return res
	}

	flow, err := h.store.Flow(ctx, flowID)
	if err != nil && !errors.Is(err, shared.ErrFlowNotFound) {
		return fail(err)
	}
	if flow == nil || flow.State == "" || flow.State != params.State {
		return fail(fmt.Errorf("%w: please restart the login", shared.ErrStateMismatch))
	}
	if flow.CodeVerifier == "" || h.clientID == "" {
		return fail(fmt.Errorf("%w: code verifier or client id unavailable", shared.ErrMissingCredentials))
	}

	if !step(ExchangingToken, "Exchanging authorization code...") {
		return res
	}

	token, err := h.exchanger.Exchange(ctx, params.Code, flow.CodeVerifier, flow.RedirectURI)
	if err != nil {
		return fail(err)
	}
	if err := h.store.DeleteFlow(ctx, flowID); err != nil {
		return fail(err)
	}
	if err := h.store.SaveToken(ctx, flowID, *token); err != nil {
		return fail(err)
	}
	res.token = token

	if !step(FetchingProfile, "Loading your profile...") {
		return res
	}

	profile, err := h.service.UserProfile(ctx, token.AccessToken)
	if err != nil {
		return fail(err)
	}
	res.Profile = profile

	if !step(FetchingPlaylists, fmt.Sprintf("Signed in as %s. Loading playlists...", profile.Label())) {
		return res
	}

	playlists, err := h.service.Playlists(ctx, token.AccessToken)
	if err != nil {
		return fail(err)
	}
	res.Playlists = playlists

	message := fmt.Sprintf("Loaded %d playlists.", len(playlists))
	if len(playlists) == 0 {
		res.Notice = NoPlaylistsNotice
		message = NoPlaylistsNotice
	}
	if !step(Ready, message) {
		return res
	}

	res.State = m.State()
	logger.Info("authorization complete", "user", profile.ID, "playlists", len(playlists))
	return res
}

type discardPresenter struct{}

func (discardPresenter) ShowStatus(State, string)        {}
func (discardPresenter) ShowError(error, CallbackParams) {}
