package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

func init() {
	MustRegister(Algorithm{Name: "sha1", Size: sha1.Size, New: sha1.New})
	MustRegister(Algorithm{Name: "sha256", Size: sha256.Size, New: sha256.New})
	MustRegister(Algorithm{Name: "sha512", Size: sha512.Size, New: sha512.New})
	MustRegister(Algorithm{Name: "md5", Size: md5.Size, New: md5.New})
	MustRegister(Algorithm{Name: "blake2b-256", Size: blake2b.Size256, New: newBlake2b(blake2b.Size256)})
	MustRegister(Algorithm{Name: "blake2b-512", Size: blake2b.Size, New: newBlake2b(blake2b.Size)})
	MustRegister(Algorithm{Name: "blake3", Size: 32, New: func() hash.Hash { return blake3.New() }})
}

// newBlake2b 返回无密钥 blake2b 构造函数；无密钥时 blake2b.New 不会出错。
func newBlake2b(size int) func() hash.Hash {
	return func() hash.Hash {
		h, err := blake2b.New(size, nil)
		if err != nil {
			panic(err)
		}
		return h
	}
}
