package test

import (
	"crypto/rand"
	"debug/elf"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// Fixture is a test binary.
type Fixture struct {
	// Name is the short name of the fixture.
	Name string
	// Path is the absolute path to the test binary.
	Path string
	// Source is the absolute path of the test binary source.
	Source string
}

// Fixtures is a map of Fixture.Name to Fixture.
var Fixtures = make(map[string]Fixture)

// FindFixturesDir walks up from the working directory looking for
// _fixtures.
func FindFixturesDir() string {
	parent := ".."
	fixturesDir := "_fixtures"
	for depth := 0; depth < 10; depth++ {
		if _, err := os.Stat(fixturesDir); err == nil {
			break
		}
		fixturesDir = filepath.Join(parent, fixturesDir)
	}
	return fixturesDir
}

// BuildFixture compiles _fixtures/<name>.go without optimizations and
// returns the resulting binary. Binaries are built once per test run.
func BuildFixture(name string) Fixture {
	if f, ok := Fixtures[name]; ok {
		return f
	}

	fixturesDir := FindFixturesDir()

	// Make a (good enough) random temporary file name
	r := make([]byte, 4)
	rand.Read(r)
	path := filepath.Join(fixturesDir, name+".go")
	tmpfile := filepath.Join(os.TempDir(), fmt.Sprintf("%s.%s", name, hex.EncodeToString(r)))

	cmd := exec.Command("go", "build", "-gcflags=all=-N -l", "-o", tmpfile, name+".go")
	cmd.Dir = fixturesDir
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")

	// Build the test binary
	if out, err := cmd.CombinedOutput(); err != nil {
		fmt.Printf("Error compiling %s: %s\n%s\n", path, err, out)
		os.Exit(1)
	}

	source, _ := filepath.Abs(path)

	Fixtures[name] = Fixture{Name: name, Path: tmpfile, Source: source}
	return Fixtures[name]
}

// RunTestsWithFixtures runs the tests and deletes the fixtures built by
// them before returning.
func RunTestsWithFixtures(m *testing.M) int {
	status := m.Run()

	// Remove the fixtures.
	for _, f := range Fixtures {
		os.Remove(f.Path)
	}
	return status
}

// Env is the environment fixtures are launched with. Asynchronous
// preemption is disabled so that the test process sees no SIGURG traffic.
func Env() []string {
	return append(os.Environ(), "GODEBUG=asyncpreemptoff=1")
}

// EntryPoint returns the ELF entry point of the fixture.
func (f Fixture) EntryPoint(t testing.TB) uint64 {
	t.Helper()
	ef, err := elf.Open(f.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer ef.Close()
	return ef.Entry
}

// Symbol returns the address of the symbol called name in the fixture.
func (f Fixture) Symbol(t testing.TB, name string) uint64 {
	t.Helper()
	ef, err := elf.Open(f.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer ef.Close()
	syms, err := ef.Symbols()
	if err != nil {
		t.Fatal(err)
	}
	for _, sym := range syms {
		if sym.Name == name {
			return sym.Value
		}
	}
	t.Fatalf("symbol %s not found in %s", name, f.Path)
	return 0
}
