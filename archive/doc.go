/*

Package archive is the pack/compress backend behind compiled
databases.  A database directory is packed into an uncompressed tar,
and the tar is compressed into a single zstd file; decompiling runs
the same two steps backwards.  Pack and Unpack are exact inverses for
trees of directories and regular files, as are Compress and
Decompress for a single file.

*/

package archive
