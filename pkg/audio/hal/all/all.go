// ABOUTME: Registers every output backend built into the binary
// ABOUTME: Import for side effects from commands
package all

import (
	_ "github.com/Resonate-Protocol/resonate-out/pkg/audio/hal/malgo"
	_ "github.com/Resonate-Protocol/resonate-out/pkg/audio/hal/oto"
	_ "github.com/Resonate-Protocol/resonate-out/pkg/audio/hal/portaudio"
	_ "github.com/Resonate-Protocol/resonate-out/pkg/audio/hal/sim"
)
