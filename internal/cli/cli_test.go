package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelter/pkg/types"
)

const referenceDir = "../sqlite/testdata/reference"

// testConfigYAML keeps argon2 cheap so credential commands stay fast.
const testConfigYAML = `backend: sqlite
log_level: error
hash:
  time: 1
  memory: 64
  threads: 1
`

type testEnv struct {
	configDir string
	dataDir   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		configDir: filepath.Join(t.TempDir(), "config"),
		dataDir:   filepath.Join(t.TempDir(), "data"),
	}
	require.NoError(t, os.MkdirAll(env.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(env.configDir, configFileExt), []byte(testConfigYAML), 0o644))
	return env
}

// newReferenceEnv returns an initialized environment seeded with the
// reference data set.
func newReferenceEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t)
	_, err := env.run(t, "", "init", "--reference-dir", referenceDir)
	require.NoError(t, err)
	return env
}

func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...))
	err := root.Execute()
	return out.String(), err
}

func (e *testEnv) runJSON(t *testing.T, v any, args ...string) {
	t.Helper()
	out, err := e.run(t, "", append([]string{"--json"}, args...)...)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), v), "output: %s", out)
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "shelter v"+version)
	assert.Contains(t, out, modulePath)
}

func TestInit(t *testing.T) {
	t.Run("seeds reference data", func(t *testing.T) {
		env := newReferenceEnv(t)

		var rooms []types.Room
		env.runJSON(t, &rooms, "room", "list")
		require.Len(t, rooms, 3)
		assert.Equal(t, 1, rooms[0].Occupancy)

		var animals []types.Animal
		env.runJSON(t, &animals, "animal", "search", "u")
		assert.Len(t, animals, 2)
	})

	t.Run("reset discards changes", func(t *testing.T) {
		env := newReferenceEnv(t)
		_, err := env.run(t, "", "vaccine", "add", "Parvovirus")
		require.NoError(t, err)

		_, err = env.run(t, "", "init", "--reset", "--reference-dir", referenceDir)
		require.NoError(t, err)

		var vaccines []types.Vaccine
		env.runJSON(t, &vaccines, "vaccine", "list")
		assert.Len(t, vaccines, 3)
	})

	t.Run("empty database without reference data", func(t *testing.T) {
		env := newTestEnv(t)
		out, err := env.run(t, "", "init")
		require.NoError(t, err)
		assert.Contains(t, out, "Shelter initialized")

		var rooms []types.Room
		env.runJSON(t, &rooms, "room", "list")
		assert.Empty(t, rooms)
	})
}

func TestIntakeAndAdopt(t *testing.T) {
	env := newReferenceEnv(t)

	var animal types.Animal
	env.runJSON(t, &animal, "intake", "--name", "Tom", "--department", "M", "--sex", "M", "--birth", "2024-02-01")
	assert.Equal(t, int64(1), animal.RoomID)
	assert.NotZero(t, animal.ID)

	var rooms []types.Room
	env.runJSON(t, &rooms, "room", "list", "--department", "M")
	require.Len(t, rooms, 2)
	assert.Equal(t, 2, rooms[0].Occupancy)

	var adoption types.Adoption
	env.runJSON(t, &adoption, "adopt", fmt.Sprint(animal.ID), "1", "--date", "2024-06-01")
	assert.Equal(t, animal.ID, adoption.AnimalID)
	assert.Equal(t, "2024-06-01", adoption.Date.Format(types.DateLayout))

	env.runJSON(t, &rooms, "room", "list", "--department", "M")
	assert.Equal(t, 1, rooms[0].Occupancy)

	_, err := env.run(t, "", "adopt", fmt.Sprint(animal.ID), "2")
	require.ErrorIs(t, err, types.ErrAlreadyAdopted)
	assert.Equal(t, exitUserError, exitCode(err))

	out, err := env.run(t, "", "audit")
	require.NoError(t, err)
	assert.Contains(t, out, "No violations")
}

func TestIntakeNoCapacity(t *testing.T) {
	env := newReferenceEnv(t)

	_, err := env.run(t, "", "intake", "--name", "Max", "--department", "P", "--sex", "M")
	require.NoError(t, err)

	_, err = env.run(t, "", "intake", "--name", "Bella", "--department", "P", "--sex", "F")
	require.ErrorIs(t, err, types.ErrNoCapacity)
	assert.Equal(t, exitUserError, exitCode(err))

	var animals []types.Animal
	env.runJSON(t, &animals, "animal", "search", "Bella")
	assert.Empty(t, animals)
}

func TestIntakeRejectsBadInput(t *testing.T) {
	env := newReferenceEnv(t)

	_, err := env.run(t, "", "intake", "--name", "Tom", "--department", "X", "--sex", "M")
	assert.ErrorIs(t, err, types.ErrInvalidData)

	_, err = env.run(t, "", "intake", "--name", "Tom", "--department", "M", "--sex", "M", "--birth", "01/02/2024")
	assert.ErrorIs(t, err, types.ErrInvalidData)
}

func TestVaccinate(t *testing.T) {
	env := newReferenceEnv(t)

	_, err := env.run(t, "", "vaccinate", "3", "1")
	require.NoError(t, err)
	_, err = env.run(t, "", "vaccinate", "3", "99")
	assert.ErrorIs(t, err, types.ErrVaccineNotFound)

	out, err := env.run(t, "", "animal", "show", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Luna")
	assert.Contains(t, out, "vaccine 1")
}

func TestUser(t *testing.T) {
	env := newReferenceEnv(t)

	_, err := env.run(t, "s3cret\n", "user", "signup", "bob")
	require.NoError(t, err)

	var id types.Identity
	env.runJSON(t, &id, "user", "login", "bob", "--password", "s3cret")
	assert.Equal(t, "bob", id.Handle)

	_, err = env.run(t, "", "user", "login", "bob", "--password", "wrong")
	assert.ErrorIs(t, err, types.ErrInvalidCredential)
	_, err = env.run(t, "", "user", "login", "admin", "--password", "admin-secret")
	assert.NoError(t, err)

	_, err = env.run(t, "other\n", "user", "signup", "bob")
	assert.ErrorIs(t, err, types.ErrDuplicateHandle)

	_, err = env.run(t, "", "user", "signup", "carol")
	assert.ErrorIs(t, err, types.ErrInvalidData)
}

func TestPerson(t *testing.T) {
	env := newReferenceEnv(t)

	var p types.Person
	env.runJSON(t, &p, "person", "add", "--first", "Eva", "--last", "Horvat", "--email", "eva@example.org")
	assert.Equal(t, int64(3), p.ID)

	var found []types.Person
	env.runJSON(t, &found, "person", "search", "horv")
	require.Len(t, found, 1)
	assert.Equal(t, "Eva", found[0].FirstName)

	_, err := env.run(t, "", "person", "show", "42")
	assert.ErrorIs(t, err, types.ErrPersonNotFound)
}

func TestLoadAndExport(t *testing.T) {
	env := newReferenceEnv(t)

	csvPath := filepath.Join(t.TempDir(), "vaccines.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("name\nParvovirus\nLeptospirosis\n"), 0o644))
	out, err := env.run(t, "", "load", "vaccine", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 2 rows into vaccine")

	_, err = env.run(t, "", "load", "kennel", csvPath)
	assert.ErrorIs(t, err, types.ErrTableNotFound)

	dir := t.TempDir()
	var counts map[string]int
	env.runJSON(t, &counts, "export", dir)
	assert.Equal(t, 5, counts[types.VaccineTable])
	assert.FileExists(t, filepath.Join(dir, types.VaccineTable+".jsonl"))
}

func TestAnimalYoungest(t *testing.T) {
	env := newReferenceEnv(t)

	var animals []types.Animal
	env.runJSON(t, &animals, "animal", "youngest", "--department", "M", "--limit", "1")
	require.Len(t, animals, 1)
	assert.Equal(t, "Luna", animals[0].Name)
}

func TestClear(t *testing.T) {
	env := newReferenceEnv(t)
	_, err := env.run(t, "", "clear")
	require.NoError(t, err)

	var housing []types.HousingAssignment
	env.runJSON(t, &housing, "housing", "list")
	assert.Empty(t, housing)
}

func TestLoadConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cfg")
	v, err := loadConfig(dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, configFileExt))

	cfg, err := buildConfig(v, "/data")
	require.NoError(t, err)
	assert.Equal(t, types.BackendSQLite, cfg.Backend)
	assert.Equal(t, "/data", cfg.DataDir)
	assert.Equal(t, 5*time.Second, cfg.BusyTimeout)
	assert.Equal(t, types.DefaultHashParams, cfg.Hash)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitSuccess},
		{"domain error", fmt.Errorf("intake: %w", types.ErrNoCapacity), exitUserError},
		{"storage failure", fmt.Errorf("%w: boom", types.ErrStorageFailure), exitSysError},
		{"system error", systemError(os.ErrPermission), exitSysError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
