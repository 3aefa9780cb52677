// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package duphash

import (
	"strconv"

	"github.com/valyala/bytebufferpool"

	"github.com/wingedpig/duphash/internal/model"
)

const threadHeader = "Thread\n"

// Serialize renders thread as canonical text: a "Thread" header line then
// one "<identity>+0x<offset>" line per emitted frame, innermost first.
// frameLimit counts emitted frames; zero or less means all of them.
// Unless NoNormalize is set the thread is first passed through
// NormalizeThread.
func Serialize(thread model.Thread, frameLimit int, flags Flags) string {
	if flags.normalizing() {
		thread = NormalizeThread(thread)
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString(threadHeader)
	emitted := 0
	for _, f := range thread.Frames {
		if frameLimit > 0 && emitted >= frameLimit {
			break
		}
		identity, offset, ok := normalizeFrame(f, flags)
		if !ok {
			continue
		}
		buf.WriteString(identity)
		buf.WriteString("+0x")
		buf.B = strconv.AppendUint(buf.B, offset, 16)
		buf.WriteByte('\n')
		emitted++
	}
	return buf.String()
}
