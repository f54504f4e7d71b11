//go:build unit || !integration

package image

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/bacalhau-project/callback-relay/pkg/relayerrors"
)

type RegistryTestSuite struct {
	suite.Suite
	fib    Entry
	square Entry
	reg    *Registry
}

func TestRegistryTestSuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (s *RegistryTestSuite) SetupTest() {
	s.fib = NewEntry("fibonacci", []byte("fibonacci guest"))
	s.square = NewEntry("SQUARE", []byte("square guest"))

	reg, err := NewRegistry(s.fib, s.square)
	s.Require().NoError(err)
	s.reg = reg
}

func (s *RegistryTestSuite) TestResolveByNameAndID() {
	for _, want := range []Entry{s.fib, s.square} {
		selectors := []string{
			want.Name,
			strings.ToLower(want.Name),
			alternateCase(want.Name),
			want.ID.String(),
			want.ID.Hex(),
			strings.ToUpper(want.ID.String()),
			"0X" + want.ID.String(),
		}
		for _, selector := range selectors {
			got, err := s.reg.Resolve(selector)
			s.Require().NoError(err, selector)
			s.Equal(want, got, selector)
		}
	}
}

func (s *RegistryTestSuite) TestResolveMalformedHexFallsBackToName() {
	hexLooking, err := NewRegistry(NewEntry("0xdeadbeef", []byte("guest")))
	s.Require().NoError(err)

	got, err := hexLooking.Resolve("0xDEADBEEF")
	s.Require().NoError(err)
	s.Equal("0XDEADBEEF", got.Name)
}

func (s *RegistryTestSuite) TestResolveUnknown() {
	for _, selector := range []string{"nope", ComputeID([]byte("other")).Hex(), "0xzz", ""} {
		_, err := s.reg.Resolve(selector)
		s.Require().Error(err)
		s.True(relayerrors.Is(err, relayerrors.UnknownImage), selector)

		var coded *relayerrors.Error
		s.Require().ErrorAs(err, &coded)
		s.Equal(selector, coded.Details()["selector"])
		s.Contains(coded.Details()["known"], s.fib.ID.String())
		s.Contains(coded.Details()["known"], s.square.ID.String())
	}
}

func (s *RegistryTestSuite) TestDuplicatesRejected() {
	_, err := NewRegistry(s.fib, NewEntry("FIBONACCI", []byte("another binary")))
	s.ErrorContains(err, "duplicate image name")

	_, err = NewRegistry(s.fib, NewEntry("copy", s.fib.Binary))
	s.ErrorContains(err, "share id")
}

func (s *RegistryTestSuite) TestEntriesKeepOrder() {
	entries := s.reg.Entries()
	s.Require().Len(entries, 2)
	s.Equal("FIBONACCI", entries[0].Name)
	s.Equal("SQUARE", entries[1].Name)
	s.Equal([]string{s.fib.ID.String(), s.square.ID.String()}, s.reg.IDs())
}

func (s *RegistryTestSuite) TestLoadDir() {
	dir := s.T().TempDir()
	s.Require().NoError(os.WriteFile(filepath.Join(dir, "echo.wasm"), []byte("echo"), 0o600))
	s.Require().NoError(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	reg, err := LoadDir(dir)
	s.Require().NoError(err)
	s.Equal(1, reg.Len())

	entry, err := reg.Resolve("echo")
	s.Require().NoError(err)
	s.Equal(ComputeID([]byte("echo")), entry.ID)
	s.Equal([]byte("echo"), entry.Binary)
}

func alternateCase(s string) string {
	out := []rune(strings.ToLower(s))
	for i := 0; i < len(out); i += 2 {
		out[i] = []rune(strings.ToUpper(string(out[i])))[0]
	}
	return string(out)
}
