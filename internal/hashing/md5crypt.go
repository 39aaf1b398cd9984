package hashing

import (
	"crypto/md5"
	"strings"
)

const itoa64 = "./0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// md5Crypt is the FreeBSD MD5-crypt as used by Apache with the "$apr1$"
// magic. salt is at most 8 characters.
func md5Crypt(password, salt, magic string) string {
	if len(salt) > 8 {
		salt = salt[:8]
	}
	pw := []byte(password)

	d := md5.New()
	d.Write(pw)
	d.Write([]byte(magic))
	d.Write([]byte(salt))

	mix := md5.Sum([]byte(password + salt + password))
	for i := 0; i < len(pw); i++ {
		d.Write(mix[i%16 : i%16+1])
	}

	for i := len(pw); i > 0; i >>= 1 {
		if i&1 != 0 {
			d.Write([]byte{0})
		} else {
			d.Write(pw[:1])
		}
	}
	final := d.Sum(nil)

	for i := 0; i < 1000; i++ {
		d2 := md5.New()
		if i&1 != 0 {
			d2.Write(pw)
		} else {
			d2.Write(final)
		}
		if i%3 != 0 {
			d2.Write([]byte(salt))
		}
		if i%7 != 0 {
			d2.Write(pw)
		}
		if i&1 != 0 {
			d2.Write(final)
		} else {
			d2.Write(pw)
		}
		final = d2.Sum(nil)
	}

	var b strings.Builder
	b.WriteString(magic)
	b.WriteString(salt)
	b.WriteByte('$')
	for _, g := range [][3]int{{0, 6, 12}, {1, 7, 13}, {2, 8, 14}, {3, 9, 15}, {4, 10, 5}} {
		v := uint(final[g[0]])<<16 | uint(final[g[1]])<<8 | uint(final[g[2]])
		for j := 0; j < 4; j++ {
			b.WriteByte(itoa64[v&0x3f])
			v >>= 6
		}
	}
	v := uint(final[11])
	for j := 0; j < 2; j++ {
		b.WriteByte(itoa64[v&0x3f])
		v >>= 6
	}
	return b.String()
}
