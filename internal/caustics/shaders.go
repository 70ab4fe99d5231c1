package caustics

import "GopherWater/internal/scene"

const causticsVertex = scene.OpticsGLSL + `
uniform sampler2D water;
uniform vec3 light;
out vec3 oldPos;
out vec3 newPos;

vec3 project(vec3 origin, vec3 ray, vec3 refractedLight) {
    vec2 tcube = intersectCube(origin, ray, poolMin, poolMax);
    origin += ray * tcube.y;
    float tplane = (-origin.y - poolHeight) / refractedLight.y;
    return origin + refractedLight * tplane;
}

void main() {
    vec4 info = texture(water, position.xz * 0.5 + 0.5);
    info.ba *= 0.5;
    vec3 normal = vec3(info.b, sqrt(max(0.0, 1.0 - dot(info.ba, info.ba))), info.a);

    vec3 sun = safeLight(light);
    vec3 refractedLight = refractedLightDir(sun);
    vec3 ray = refract(-sun, normal, IOR_AIR / IOR_WATER);
    ray.y = min(ray.y, -1e-3);

    oldPos = project(position, refractedLight, refractedLight);
    newPos = project(position + vec3(0.0, info.r, 0.0), ray, refractedLight);
    gl_Position = vec4(0.75 * (newPos.xz + refractedLight.xz / refractedLight.y), 0.0, 1.0);
    gl_ClipDistance[0] = dot(vec4(newPos, 1.0), clipPlane);
}
`

const causticsFragment = scene.OpticsGLSL + `
uniform vec3 light;
uniform vec3 sphereCenter;
uniform float sphereRadius;
uniform float neutral;
uniform float maxIntensity;
in vec3 oldPos;
in vec3 newPos;

void main() {
    float oldArea = length(dFdx(oldPos)) * length(dFdy(oldPos));
    float newArea = length(dFdx(newPos)) * length(dFdy(newPos));
    vec3 refractedLight = refractedLightDir(light);

    float intensity = oldArea / max(newArea, 1e-8) * neutral;
    intensity *= rimShadow(newPos, -refractedLight);
    if (isnan(intensity)) intensity = 0.0;
    intensity = clamp(intensity, 0.0, maxIntensity);

    float shadow = 1.0;
    if (sphereRadius > 0.0) {
        vec3 dir = (sphereCenter - newPos) / sphereRadius;
        vec3 area = cross(dir, refractedLight);
        float dist = dot(dir, -refractedLight);
        shadow = 1.0 + (dot(area, area) - 1.0) / (0.05 + dist * 0.025);
        shadow = clamp(1.0 / (1.0 + exp(-shadow)), 0.0, 1.0);
        shadow = mix(1.0, shadow, clamp(dist * 2.0, 0.0, 1.0));
    }
    fragColor = vec4(intensity, intensity * shadow, 0.0, 0.0);
}
`

const clampFragment = `
uniform sampler2D source;
uniform float maxIntensity;

void main() {
    vec4 v = texture(source, coord);
    fragColor = clamp(mix(v, vec4(0.0), isnan(v)), 0.0, maxIntensity);
}
`

const blurFragment = `
uniform sampler2D source;
uniform vec2 delta;

void main() {
    fragColor =
        texture(source, coord - 2.0 * delta) * (1.0 / 16.0) +
        texture(source, coord - delta) * (4.0 / 16.0) +
        texture(source, coord) * (6.0 / 16.0) +
        texture(source, coord + delta) * (4.0 / 16.0) +
        texture(source, coord + 2.0 * delta) * (1.0 / 16.0);
}
`
