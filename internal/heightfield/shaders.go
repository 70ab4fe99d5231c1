package heightfield

// Fragment sources for the four simulation passes. Each reads the `water`
// sampler and writes the full RGBA state of its texel.

const dropFragment = `
const float PI = 3.141592653589793;
uniform sampler2D water;
uniform vec2 center;
uniform float radius;
uniform float strength;

void main() {
    vec4 info = texture(water, coord);
    float drop = clamp(1.0 - length(center - coord) / radius, 0.0, 1.0);
    drop = 0.5 - cos(drop * PI) * 0.5;
    info.r += drop * strength;
    fragColor = info;
}
`

const propagateFragment = `
uniform sampler2D water;
uniform vec2 delta;
uniform float damping;

void main() {
    vec4 info = texture(water, coord);
    vec2 dx = vec2(delta.x, 0.0);
    vec2 dy = vec2(0.0, delta.y);
    float average = (
        texture(water, coord - dx).r +
        texture(water, coord + dx).r +
        texture(water, coord - dy).r +
        texture(water, coord + dy).r
    ) * 0.25;
    info.g += (average - info.r) * 2.0;
    info.g *= damping;
    info.r += info.g;
    fragColor = info;
}
`

const normalFragment = `
uniform sampler2D water;
uniform vec2 delta;

void main() {
    vec4 info = texture(water, coord);
    vec3 dx = vec3(delta.x, texture(water, vec2(coord.x + delta.x, coord.y)).r - info.r, 0.0);
    vec3 dy = vec3(0.0, texture(water, vec2(coord.x, coord.y + delta.y)).r - info.r, delta.y);
    info.ba = normalize(cross(dy, dx)).xz;
    fragColor = info;
}
`

const sphereFragment = `
uniform sampler2D water;
uniform vec3 oldCenter;
uniform vec3 newCenter;
uniform float radius;

float volumeInSphere(vec3 center) {
    vec3 toCenter = vec3(coord.x * 2.0 - 1.0, 0.0, coord.y * 2.0 - 1.0) - center;
    float t = length(toCenter) / radius;
    float dy = exp(-pow(t * 1.5, 6.0));
    float ymin = min(0.0, center.y - dy);
    float ymax = min(max(0.0, center.y + dy), ymin + 2.0 * dy);
    return (ymax - ymin) * 0.1;
}

void main() {
    vec4 info = texture(water, coord);
    info.r += volumeInSphere(oldCenter);
    info.r -= volumeInSphere(newCenter);
    fragColor = info;
}
`
