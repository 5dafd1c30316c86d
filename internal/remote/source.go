package remote

import (
	"io/fs"
	"os"
	pathpkg "path"
	"strings"
)

// SFTPSource lists a remote filesystem. SFTP reports link attributes for
// directory entries, so symlinks are listed as files and never followed.
type SFTPSource struct {
	client sftpClient
}

// ReadDir lists path, skipping devices, sockets and pipes.
func (s *SFTPSource) ReadDir(path string) ([]fs.DirEntry, error) {
	infos, err := s.client.ReadDir(path)
	if err != nil {
		return nil, err
	}
	entries := make([]fs.DirEntry, 0, len(infos))
	for _, info := range infos {
		if isSpecialMode(info.Mode()) {
			continue
		}
		entries = append(entries, fs.FileInfoToDirEntry(info))
	}
	return entries, nil
}

func (s *SFTPSource) Stat(path string) (fs.FileInfo, error) {
	return s.client.Stat(path)
}

func (s *SFTPSource) Join(elem ...string) string {
	return cleanRemotePath(pathpkg.Join(elem...))
}

func cleanRemotePath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if strings.TrimSpace(p) == "" {
		return "."
	}
	return pathpkg.Clean(p)
}

func isSpecialMode(mode os.FileMode) bool {
	return mode&(os.ModeDevice|os.ModeCharDevice|os.ModeSocket|os.ModeNamedPipe|os.ModeIrregular) != 0
}
