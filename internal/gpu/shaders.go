//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/naga"
)

// mapShaderWGSL writes each pixel's complex-plane coordinates.
const mapShaderWGSL = `
struct MapParams {
    width: u32,
    height: u32,
    min_x: f32,
    max_x: f32,
    min_y: f32,
    max_y: f32,
    _pad0: u32,
    _pad1: u32,
};

@group(0) @binding(0) var<uniform> params: MapParams;
@group(0) @binding(1) var<storage, read_write> out_coords: array<f32>;

@compute @workgroup_size(8, 8, 1)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    if (gid.x >= params.width || gid.y >= params.height) {
        return;
    }
    let wm = max(params.width - 1u, 1u);
    let hm = max(params.height - 1u, 1u);
    let re = params.min_x + (params.max_x - params.min_x) * f32(gid.x) / f32(wm);
    let im = params.min_y + (params.max_y - params.min_y) * f32(gid.y) / f32(hm);
    let idx = (gid.y * params.width + gid.x) * 2u;
    out_coords[idx] = re;
    out_coords[idx + 1u] = im;
}
`

// stepShaderWGSL runs the escape-time iteration over a coordinate field.
const stepShaderWGSL = `
struct StepParams {
    width: u32,
    height: u32,
    max_iterations: u32,
    _pad0: u32,
    c_re: f32,
    c_im: f32,
    boundary_radius: f32,
    _pad1: u32,
};

@group(0) @binding(0) var<uniform> params: StepParams;
@group(0) @binding(1) var<storage, read> in_coords: array<f32>;
@group(0) @binding(2) var<storage, read_write> out_samples: array<f32>;

@compute @workgroup_size(8, 8, 1)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    if (gid.x >= params.width || gid.y >= params.height) {
        return;
    }
    let pix = gid.y * params.width + gid.x;
    var z_re = in_coords[pix * 2u];
    var z_im = in_coords[pix * 2u + 1u];

    var iter: u32 = 0u;
    loop {
        if (iter >= params.max_iterations) { break; }
        if (z_re * z_re + z_im * z_im >= params.boundary_radius) { break; }
        let re = z_re * z_re - z_im * z_im + params.c_re;
        z_im = 2.0 * z_re * z_im + params.c_im;
        z_re = re;
        iter = iter + 1u;
    }

    out_samples[pix] = f32(iter) / f32(params.max_iterations);
}
`

// colorizeShaderWGSL converts scalar samples to 8-bit color through the
// bound channel offsets. Output bytes are packed into u32 words; each
// invocation fills one word, so three-byte pixels straddling a word
// boundary need no atomics.
const colorizeShaderWGSL = `
struct ColorizeParams {
    pixel_count: u32,
    out_words: u32,
    bpp: u32,
    red_off: u32,
    green_off: u32,
    blue_off: u32,
    _pad0: u32,
    _pad1: u32,
};

@group(0) @binding(0) var<uniform> params: ColorizeParams;
@group(0) @binding(1) var<storage, read> in_samples: array<f32>;
@group(0) @binding(2) var<storage, read_write> out_words: array<u32>;

@compute @workgroup_size(64, 1, 1)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let w = gid.x;
    if (w >= params.out_words) {
        return;
    }
    var word: u32 = 0u;
    for (var i = 0u; i < 4u; i = i + 1u) {
        let byte_index = w * 4u + i;
        let pix = byte_index / params.bpp;
        let chan = byte_index % params.bpp;
        if (pix >= params.pixel_count) {
            continue;
        }
        let v = clamp(in_samples[pix], 0.0, 1.0);
        let s = u32(v * 255.0);
        var b: u32;
        if (params.bpp == 1u || chan == params.red_off) {
            b = s;
        } else if (chan == params.green_off) {
            b = s * (255u - s) * 4u / 255u;
        } else {
            b = 255u - s;
        }
        word = word | (b << (8u * i));
    }
    out_words[w] = word;
}
`

// incrementShaderWGSL adds one to every byte, word at a time.
const incrementShaderWGSL = `
struct IncParams {
    words: u32,
    _pad0: u32,
    _pad1: u32,
    _pad2: u32,
};

@group(0) @binding(0) var<uniform> params: IncParams;
@group(0) @binding(1) var<storage, read> in_words: array<u32>;
@group(0) @binding(2) var<storage, read_write> out_words: array<u32>;

@compute @workgroup_size(64, 1, 1)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let i = gid.x;
    if (i >= params.words) {
        return;
    }
    let w = in_words[i];
    var out: u32 = 0u;
    for (var k = 0u; k < 4u; k = k + 1u) {
        let b = (w >> (8u * k)) & 0xffu;
        out = out | (((b + 1u) & 0xffu) << (8u * k));
    }
    out_words[i] = out;
}
`

// compileShader runs WGSL through naga and returns SPIR-V words.
// Compiling up front surfaces shader errors at init instead of first
// dispatch.
func compileShader(name, wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("gpu: compile %s shader: %w", name, err)
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
