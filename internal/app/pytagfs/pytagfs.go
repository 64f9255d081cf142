// Package pytagfs is the Dispatcher: it binds bazil.org/fuse kernel
// callbacks to internal/pkg/engine, translating between fuse
// request/response types and the engine's tag-path
// operations, and mapping internal/pkg/fserr errors to the
// syscall.Errno the kernel expects.
package pytagfs

import (
	"context"
	"os"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"

	"github.com/david-morris/pytagfs/internal/pkg/engine"
	"github.com/david-morris/pytagfs/internal/pkg/fserr"
	"github.com/david-morris/pytagfs/internal/pkg/model"
	"github.com/david-morris/pytagfs/internal/pkg/projector"
)

// Mount opens the store at dbPath and serves the filesystem at
// mountpoint until the kernel unmounts it or Serve returns an error.
func Mount(dbPath string, mountpoint string, opts []string) error {
	eng, err := engine.Open(dbPath)
	if err != nil {
		return err
	}
	defer eng.Close()

	mountOpts := []fuse.MountOption{
		fuse.FSName("pytagfs"),
		fuse.Subtype("pytagfs"),
		fuse.LocalVolume(),
		fuse.VolumeName("Tagged Filesystem"),
	}
	mountOpts = append(mountOpts, translateOptions(opts)...)

	c, err := fuse.Mount(mountpoint, mountOpts...)
	if err != nil {
		return err
	}
	defer c.Close()

	filesys := &FS{eng: eng}
	if err := fs.Serve(c, filesys); err != nil {
		return err
	}

	<-c.Ready
	if err := c.MountError; err != nil {
		return err
	}
	return nil
}

// translateOptions maps the handful of -o mount options this
// filesystem recognizes to bazil.org/fuse MountOptions; anything
// unrecognized is ignored rather than rejected, matching fstab's usual
// laxity.
func translateOptions(opts []string) []fuse.MountOption {
	var out []fuse.MountOption
	for _, o := range opts {
		switch o {
		case "ro":
			out = append(out, fuse.ReadOnly())
		case "allow_other":
			out = append(out, fuse.AllowOther())
		}
	}
	return out
}

// FS is the bazil.org/fuse filesystem root.
type FS struct {
	eng *engine.Engine
}

var _ fs.FS = (*FS)(nil)

func (f *FS) Root() (fs.Node, error) {
	return &Dir{eng: f.eng}, nil
}

var _ = fs.FSStatfser(&FS{})

// Statfs answers df/stat -f with a synthetic block/inode count derived
// from the store's file and tag totals; there's no real block device
// behind a sqlite-backed store, so this reports something plausible
// rather than nothing.
func (f *FS) Statfs(ctx context.Context, req *fuse.StatfsRequest, resp *fuse.StatfsResponse) error {
	summary := f.eng.Stat()
	const blockSize = 4096
	resp.Bsize = blockSize
	resp.Files = uint64(summary.Files + summary.Tags)
	resp.Ffree = 1 << 20
	resp.Blocks = uint64(summary.Files)
	resp.Bfree = 1 << 30
	resp.Bavail = resp.Bfree
	return nil
}

// Dir is a synthetic tag directory (nil/empty Tags for the mount
// root).
type Dir struct {
	eng  *engine.Engine
	Tags []string
}

var _ fs.Node = (*Dir)(nil)

func (d *Dir) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = os.ModeDir | 0755
	return nil
}

var _ = fs.NodeRequestLookuper(&Dir{})

func (d *Dir) Lookup(ctx context.Context, req *fuse.LookupRequest, resp *fuse.LookupResponse) (fs.Node, error) {
	kind, file, err := d.eng.Resolve(d.Tags, req.Name)
	if err != nil {
		return nil, fserr.Errno(err)
	}
	switch kind {
	case engine.KindTagDir:
		return &Dir{eng: d.eng, Tags: childTags(d.Tags, req.Name)}, nil
	case engine.KindFile:
		return &File{eng: d.eng, id: file.Id, depth: len(d.Tags)}, nil
	default:
		return nil, fuse.ENOENT
	}
}

var _ = fs.HandleReadDirAller(&Dir{})

func (d *Dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	entries, err := d.eng.ReadDir(d.Tags)
	if err != nil {
		return nil, fserr.Errno(err)
	}
	result := make([]fuse.Dirent, 0, len(entries))
	for _, e := range entries {
		typ := fuse.DT_Dir
		if e.Kind == projector.KindFile {
			typ = fuse.DT_File
		}
		result = append(result, fuse.Dirent{Name: e.DisplayName(), Type: typ})
	}
	return result, nil
}

var _ = fs.NodeMkdirer(&Dir{})

func (d *Dir) Mkdir(ctx context.Context, req *fuse.MkdirRequest) (fs.Node, error) {
	if err := d.eng.Mkdir(d.Tags, req.Name); err != nil {
		return nil, fserr.Errno(err)
	}
	return &Dir{eng: d.eng, Tags: childTags(d.Tags, req.Name)}, nil
}

var _ = fs.NodeCreater(&Dir{})

// Create implements the create FUSE callback: a new file is tagged
// with the directory it was created in.
func (d *Dir) Create(ctx context.Context, req *fuse.CreateRequest, resp *fuse.CreateResponse) (fs.Node, fs.Handle, error) {
	id, err := d.eng.Create(d.Tags, req.Name, uint32(req.Mode.Perm()), req.Uid, req.Gid)
	if err != nil {
		return nil, nil, fserr.Errno(err)
	}
	node := &File{eng: d.eng, id: id, depth: len(d.Tags)}
	return node, &FileHandle{eng: d.eng, id: id}, nil
}

var _ = fs.NodeSymlinker(&Dir{})

// Symlink implements the symlink FUSE callback. A link created at the
// mount root is the common case: it's the only place a relative target
// has well-defined depth-translation semantics on read. A link created
// inside a tag path is also allowed: its target is stored as given, and
// on read it is translated by the depth it is resolved at, like any
// other link.
func (d *Dir) Symlink(ctx context.Context, req *fuse.SymlinkRequest) (fs.Node, error) {
	id, err := d.eng.Symlink(d.Tags, req.NewName, req.Target)
	if err != nil {
		return nil, fserr.Errno(err)
	}
	return &File{eng: d.eng, id: id, depth: len(d.Tags)}, nil
}

var _ = fs.NodeRemover(&Dir{})

// Remove implements both unlink and rmdir: req.Dir distinguishes them.
func (d *Dir) Remove(ctx context.Context, req *fuse.RemoveRequest) error {
	var err error
	if req.Dir {
		err = d.eng.Rmdir(d.Tags, req.Name)
	} else {
		err = d.eng.Unlink(d.Tags, req.Name)
	}
	if err != nil {
		return fserr.Errno(err)
	}
	return nil
}

var _ = fs.NodeRenamer(&Dir{})

// Rename implements the overloaded rename callback.
func (d *Dir) Rename(ctx context.Context, req *fuse.RenameRequest, newDir fs.Node) error {
	dstDir, ok := newDir.(*Dir)
	if !ok {
		return fuse.EIO
	}
	if err := d.eng.Rename(d.Tags, req.OldName, dstDir.Tags, req.NewName); err != nil {
		return fserr.Errno(err)
	}
	return nil
}

func childTags(parent []string, name string) []string {
	out := make([]string, 0, len(parent)+1)
	out = append(out, parent...)
	out = append(out, name)
	return out
}

// File is a real, tagged entry: a regular file or a symlink. depth is
// the number of tag-path components it was resolved under, needed to
// translate a symlink target at read time.
type File struct {
	eng   *engine.Engine
	id    model.FileId
	depth int
}

var _ fs.Node = (*File)(nil)

func (f *File) Attr(ctx context.Context, a *fuse.Attr) error {
	file, err := f.eng.FileByID(f.id)
	if err != nil {
		return fserr.Errno(err)
	}
	if file.Id == model.UnknownFileId {
		return fuse.ENOENT
	}
	mode := os.FileMode(file.Mode)
	size := uint64(len(file.Content))
	if file.IsSymlink {
		mode |= os.ModeSymlink
		target, err := f.eng.Readlink(f.id, f.depth)
		if err != nil {
			return fserr.Errno(err)
		}
		size = uint64(len(target))
	}
	a.Mode = mode
	a.Size = size
	a.Uid = file.Uid
	a.Gid = file.Gid
	a.Mtime = file.Mtime
	a.Ctime = file.Ctime
	a.Atime = file.Atime
	return nil
}

var _ = fs.NodeReadlinker(&File{})

func (f *File) Readlink(ctx context.Context, req *fuse.ReadlinkRequest) (string, error) {
	target, err := f.eng.Readlink(f.id, f.depth)
	if err != nil {
		return "", fserr.Errno(err)
	}
	return target, nil
}

var _ = fs.NodeOpener(&File{})

func (f *File) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fs.Handle, error) {
	return &FileHandle{eng: f.eng, id: f.id}, nil
}

var _ = fs.NodeSetattrer(&File{})

// Setattr implements chmod/chown/utimens/truncate on a real file.
func (f *File) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	if req.Valid.Size() {
		if err := f.eng.Truncate(f.id, int64(req.Size)); err != nil {
			return fserr.Errno(err)
		}
	}
	if req.Valid.Mode() {
		if err := f.eng.Chmod(f.id, uint32(req.Mode.Perm())); err != nil {
			return fserr.Errno(err)
		}
	}
	if req.Valid.Uid() || req.Valid.Gid() {
		file, err := f.eng.FileByID(f.id)
		if err != nil {
			return fserr.Errno(err)
		}
		uid, gid := file.Uid, file.Gid
		if req.Valid.Uid() {
			uid = req.Uid
		}
		if req.Valid.Gid() {
			gid = req.Gid
		}
		if err := f.eng.Chown(f.id, uid, gid); err != nil {
			return fserr.Errno(err)
		}
	}
	if req.Valid.Atime() || req.Valid.Mtime() {
		file, err := f.eng.FileByID(f.id)
		if err != nil {
			return fserr.Errno(err)
		}
		atime, mtime := file.Atime, file.Mtime
		if req.Valid.Atime() {
			atime = req.Atime
		}
		if req.Valid.Mtime() {
			mtime = req.Mtime
		}
		if err := f.eng.Utimens(f.id, atime, mtime); err != nil {
			return fserr.Errno(err)
		}
	}
	return nil
}

// FileHandle is just a FileId plus no cursor state: the kernel
// supplies offsets.
type FileHandle struct {
	eng *engine.Engine
	id  model.FileId
}

var _ fs.Handle = (*FileHandle)(nil)

var _ = fs.HandleReader(&FileHandle{})

func (fh *FileHandle) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	data, err := fh.eng.ReadFile(fh.id)
	if err != nil {
		return fserr.Errno(err)
	}
	if req.Offset >= int64(len(data)) {
		resp.Data = nil
		return nil
	}
	end := req.Offset + int64(req.Size)
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	resp.Data = data[req.Offset:end]
	return nil
}

var _ = fs.HandleWriter(&FileHandle{})

func (fh *FileHandle) Write(ctx context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	current, err := fh.eng.ReadFile(fh.id)
	if err != nil {
		return fserr.Errno(err)
	}
	end := req.Offset + int64(len(req.Data))
	if end > int64(len(current)) {
		grown := make([]byte, end)
		copy(grown, current)
		current = grown
	}
	copy(current[req.Offset:end], req.Data)
	if err := fh.eng.Write(fh.id, current); err != nil {
		return fserr.Errno(err)
	}
	resp.Size = len(req.Data)
	return nil
}

var _ = fs.HandleFlusher(&FileHandle{})

func (fh *FileHandle) Flush(ctx context.Context, req *fuse.FlushRequest) error {
	return nil
}
