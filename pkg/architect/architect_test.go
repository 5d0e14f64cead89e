package architect

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autodev/pkg/agent"
	"autodev/pkg/metrics"
	"autodev/pkg/project"
	"autodev/pkg/templates"
	"autodev/pkg/testkit"
)

type fakeChecker struct {
	mu       sync.Mutex
	statuses map[string]int
	errs     map[string]error
	calls    []string
}

func (f *fakeChecker) Status(_ context.Context, url string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return 0, err
	}
	return f.statuses[url], nil
}

const (
	urlA = "https://a.example/api"
	urlB = "https://b.example/api"
	urlC = "https://c.example/api"
)

func newDriver(t *testing.T, completer *testkit.ScriptedCompleter, checker URLChecker, obs agent.Observer, m *metrics.Pipeline) *Driver {
	t.Helper()
	d, err := NewDriver(Deps{Completer: completer, Checker: checker, Observer: obs, Metrics: m})
	require.NoError(t, err)
	return d
}

func TestExecuteExcludesNonOKURLs(t *testing.T) {
	completer := testkit.NewScriptedCompleter().
		On(templates.PrintProjectScope, `{"is_crud_required": true, "is_requiring_login_and_logout": false, "is_external_urls_required": true}`).
		On(templates.PrintSiteURLs, "```json\n[\""+urlA+"\", \""+urlB+"\", \""+urlC+"\"]\n```")
	checker := &fakeChecker{statuses: map[string]int{urlA: 200, urlB: 404, urlC: 200}}
	obs := &testkit.RecordingObserver{}
	reg := prometheus.NewRegistry()

	d := newDriver(t, completer, checker, obs, metrics.NewPipeline(reg))
	doc := project.New("build a weather dashboard backend")

	require.NoError(t, d.Execute(context.Background(), doc))

	assert.Equal(t, []string{urlA, urlC}, doc.ExternalURLs)
	require.NotNil(t, doc.ProjectScope)
	assert.True(t, doc.ProjectScope.RequiresCRUD)
	assert.Equal(t, []string{urlA, urlB, urlC}, checker.calls)

	testkit.AssertStateSequence(t, d.States(), agent.StateDiscovery, agent.StateUnitTesting, agent.StateFinished)
	assert.Equal(t, agent.StateFinished, d.Identity().State)

	assert.Equal(t, []string{
		"Testing URL Endpoint: " + urlA,
		"Testing URL Endpoint: " + urlB,
		"Testing URL Endpoint: " + urlC,
	}, obs.Texts(agent.MessageUnitTest))
	assert.Equal(t, []string{"print_project_scope", "print_site_urls"}, taskOperations(completer))

	assert.Len(t, d.Identity().Memory, 4)
	series, err := testutil.GatherAndCount(reg, "autodev_url_checks_total")
	require.NoError(t, err)
	assert.Equal(t, 2, series, "success and excluded outcomes")
}

func TestExecuteKeepsUnreachableURL(t *testing.T) {
	completer := testkit.NewScriptedCompleter().
		On(templates.PrintProjectScope, `{"is_crud_required": false, "is_requiring_login_and_logout": false, "is_external_urls_required": true}`).
		On(templates.PrintSiteURLs, `["`+urlA+`", "`+urlB+`"]`)
	checker := &fakeChecker{
		statuses: map[string]int{urlA: 500},
		errs:     map[string]error{urlB: errors.New("dial tcp: connection refused")},
	}

	d := newDriver(t, completer, checker, nil, nil)
	doc := project.New("proxy")

	require.NoError(t, d.Execute(context.Background(), doc))
	assert.Equal(t, []string{urlB}, doc.ExternalURLs)
}

func TestExecuteWithoutExternalURLs(t *testing.T) {
	completer := testkit.NewScriptedCompleter().
		On(templates.PrintProjectScope, `{"is_crud_required": true, "is_requiring_login_and_logout": true, "is_external_urls_required": false}`)
	checker := &fakeChecker{}

	d := newDriver(t, completer, checker, nil, nil)
	doc := project.New("todo app with accounts")

	require.NoError(t, d.Execute(context.Background(), doc))

	testkit.AssertStateSequence(t, d.States(), agent.StateDiscovery, agent.StateFinished)
	assert.Nil(t, doc.ExternalURLs)
	assert.Empty(t, checker.calls)
	assert.Zero(t, completer.Calls(templates.PrintSiteURLs))
}

func TestExecuteDecodeFailure(t *testing.T) {
	completer := testkit.NewScriptedCompleter().
		On(templates.PrintProjectScope, "I think this project needs a database.")

	d := newDriver(t, completer, &fakeChecker{}, nil, nil)
	doc := project.New("anything")

	err := d.Execute(context.Background(), doc)
	require.ErrorIs(t, err, agent.ErrDecode)
	assert.Nil(t, doc.ProjectScope)
	assert.Equal(t, agent.KindDecode, agent.Kind(err))
}

func TestExecuteGenerationFailure(t *testing.T) {
	completer := testkit.NewScriptedCompleter().
		Fail(templates.PrintProjectScope, agent.ErrGeneration)

	d := newDriver(t, completer, &fakeChecker{}, nil, nil)

	err := d.Execute(context.Background(), project.New("anything"))
	require.ErrorIs(t, err, agent.ErrGeneration)
}

func TestExecuteReportsTransitions(t *testing.T) {
	completer := testkit.NewScriptedCompleter().
		On(templates.PrintProjectScope, `{"is_crud_required": false, "is_requiring_login_and_logout": false, "is_external_urls_required": false}`)

	var seen []agent.StateTransition
	d, err := NewDriver(Deps{
		Completer:   completer,
		Checker:     &fakeChecker{},
		Transitions: func(t agent.StateTransition) { seen = append(seen, t) },
	})
	require.NoError(t, err)

	require.NoError(t, d.Execute(context.Background(), project.New("x")))
	require.Len(t, seen, 1)
	assert.Equal(t, agent.StateDiscovery, seen[0].FromState)
	assert.Equal(t, agent.StateFinished, seen[0].ToState)
}

func TestNewDriverRequiresCollaborators(t *testing.T) {
	_, err := NewDriver(Deps{Checker: &fakeChecker{}})
	require.Error(t, err)

	_, err = NewDriver(Deps{Completer: testkit.NewScriptedCompleter()})
	require.Error(t, err)
}

func taskOperations(c *testkit.ScriptedCompleter) []string {
	ops := make([]string, 0, len(c.Tasks))
	for _, task := range c.Tasks {
		ops = append(ops, task.Operation)
	}
	return ops
}
