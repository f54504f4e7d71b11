// Package guests holds minimal hand assembled WASI modules for tests.
package guests

// Echo reads up to 1KiB from stdin and writes it back to stdout.
//
//	(memory (export "memory") 1)
//	(func (export "_start")
//	  (i32.store (i32.const 0) (i32.const 16))    ;; iov.buf
//	  (i32.store (i32.const 4) (i32.const 1024))  ;; iov.len
//	  (drop (call $fd_read (i32.const 0) (i32.const 0) (i32.const 1) (i32.const 8)))
//	  (i32.store (i32.const 4) (i32.load (i32.const 8)))
//	  (drop (call $fd_write (i32.const 1) (i32.const 0) (i32.const 1) (i32.const 12))))
func Echo() []byte {
	return []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		// type section: (i32 i32 i32 i32) -> i32, () -> ()
		0x01, 0x0c, 0x02,
		0x60, 0x04, 0x7f, 0x7f, 0x7f, 0x7f, 0x01, 0x7f,
		0x60, 0x00, 0x00,
		// import section
		0x02, 0x44, 0x02,
		0x16, 'w', 'a', 's', 'i', '_', 's', 'n', 'a', 'p', 's', 'h', 'o', 't', '_', 'p', 'r', 'e', 'v', 'i', 'e', 'w', '1',
		0x07, 'f', 'd', '_', 'r', 'e', 'a', 'd', 0x00, 0x00,
		0x16, 'w', 'a', 's', 'i', '_', 's', 'n', 'a', 'p', 's', 'h', 'o', 't', '_', 'p', 'r', 'e', 'v', 'i', 'e', 'w', '1',
		0x08, 'f', 'd', '_', 'w', 'r', 'i', 't', 'e', 0x00, 0x00,
		// function section
		0x03, 0x02, 0x01, 0x01,
		// memory section
		0x05, 0x03, 0x01, 0x00, 0x01,
		// export section
		0x07, 0x13, 0x02,
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
		0x06, '_', 's', 't', 'a', 'r', 't', 0x00, 0x02,
		// code section
		0x0a, 0x33, 0x01, 0x31, 0x00,
		0x41, 0x00, 0x41, 0x10, 0x36, 0x02, 0x00,
		0x41, 0x04, 0x41, 0x80, 0x08, 0x36, 0x02, 0x00,
		0x41, 0x00, 0x41, 0x00, 0x41, 0x01, 0x41, 0x08, 0x10, 0x00, 0x1a,
		0x41, 0x04, 0x41, 0x08, 0x28, 0x02, 0x00, 0x36, 0x02, 0x00,
		0x41, 0x01, 0x41, 0x00, 0x41, 0x01, 0x41, 0x0c, 0x10, 0x01, 0x1a,
		0x0b,
	}
}

// Trap executes unreachable as soon as it starts.
//
//	(func (export "_start") unreachable)
func Trap() []byte {
	return []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		0x01, 0x04, 0x01, 0x60, 0x00, 0x00,
		0x03, 0x02, 0x01, 0x00,
		0x07, 0x0a, 0x01, 0x06, '_', 's', 't', 'a', 'r', 't', 0x00, 0x00,
		0x0a, 0x05, 0x01, 0x03, 0x00, 0x00, 0x0b,
	}
}

// TwoPages declares two pages of memory and returns immediately.
//
//	(memory 2)
//	(func (export "_start"))
func TwoPages() []byte {
	return []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		0x01, 0x04, 0x01, 0x60, 0x00, 0x00,
		0x03, 0x02, 0x01, 0x00,
		0x05, 0x03, 0x01, 0x00, 0x02,
		0x07, 0x0a, 0x01, 0x06, '_', 's', 't', 'a', 'r', 't', 0x00, 0x00,
		0x0a, 0x04, 0x01, 0x02, 0x00, 0x0b,
	}
}
