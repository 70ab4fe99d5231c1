package compositor

import "GopherWater/internal/scene"

const vertexLibrary = scene.OpticsGLSL + `
uniform mat4 viewProj;
uniform sampler2D water;
uniform vec3 sphereCenter;
uniform float sphereRadius;

void writeClip(vec3 world) {
#ifdef CAP_CLIP
    gl_ClipDistance[0] = dot(vec4(world, 1.0), clipPlane);
#else
    gl_ClipDistance[0] = 1.0;
#endif
}
`

const fragmentLibrary = scene.OpticsGLSL + `
const vec3 aboveWaterColor = vec3(0.25, 1.0, 1.25);
const vec3 underWaterColor = vec3(0.4, 0.9, 1.0);
const float noHit = 1.0e6;
const float reflectionDistortion = 0.03;

uniform vec3 eye;
uniform vec3 light;
uniform vec3 lightColor;
uniform float specular;
uniform vec3 sphereCenter;
uniform float sphereRadius;
uniform sampler2D water;
uniform sampler2D caustics;
uniform sampler2D tiles;
uniform samplerCube sky;
#ifdef CAP_TINT
uniform vec3 shallowColor;
uniform vec3 deepColor;
#endif

float intersectSphere(vec3 origin, vec3 ray, vec3 center, float radius) {
    vec3 toSphere = origin - center;
    float a = dot(ray, ray);
    float b = 2.0 * dot(toSphere, ray);
    float c = dot(toSphere, toSphere) - radius * radius;
    float discriminant = b * b - 4.0 * a * c;
    if (discriminant > 0.0 && a > 0.0) {
        float t = (-b - sqrt(discriminant)) / (2.0 * a);
        if (t > 0.0) return t;
    }
    return noHit;
}

float waterHeight(vec3 p) {
#ifdef CAP_WATER_SAMPLING
    return texture(water, p.xz * 0.5 + 0.5).r;
#else
    return 0.0;
#endif
}

vec3 surfaceNormal(vec3 p) {
    vec2 uv = p.xz * 0.5 + 0.5;
    vec4 info = texture(water, uv);
    for (int i = 0; i < 3; i++) {
        uv += info.ba * 0.005;
        info = texture(water, uv);
    }
    return vec3(info.b, sqrt(max(0.0, 1.0 - dot(info.ba, info.ba))), info.a);
}

vec3 wallColor(vec3 p) {
    vec3 tile;
    vec3 normal;
    if (abs(p.x) > 0.999) {
        tile = texture(tiles, fract(p.yz * 0.5 + vec2(1.0, 0.5))).rgb;
        normal = vec3(-p.x, 0.0, 0.0);
    } else if (abs(p.z) > 0.999) {
        tile = texture(tiles, fract(p.yx * 0.5 + vec2(1.0, 0.5))).rgb;
        normal = vec3(0.0, 0.0, -p.z);
    } else {
        tile = texture(tiles, p.xz * 0.5 + 0.5).rgb;
        normal = vec3(0.0, 1.0, 0.0);
    }

    float scale = 0.5 / max(length(p), 0.1);
    if (sphereRadius > 0.0) {
        scale *= 1.0 - 0.9 / pow(length(p - sphereCenter) / sphereRadius, 4.0);
    }

    vec3 toLight = -refractedLightDir(light);
    vec3 diffuse = max(0.0, dot(toLight, normal)) * lightColor;
    vec3 lit;
#ifdef CAP_CAUSTICS
    if (p.y < waterHeight(p)) {
        vec4 caustic = texture(caustics, causticUV(p, -toLight));
        lit = diffuse * caustic.g * 2.0;
    } else
#endif
    {
        lit = diffuse * rimShadow(p, toLight) * 0.5;
    }
    return tile * (scale + lit);
}

vec3 sphereColor(vec3 p) {
    vec3 color = vec3(0.5);
    color *= 1.0 - 0.9 / pow((1.0 + sphereRadius - abs(p.x)) / sphereRadius, 3.0);
    color *= 1.0 - 0.9 / pow((1.0 + sphereRadius - abs(p.z)) / sphereRadius, 3.0);
    color *= 1.0 - 0.9 / pow((p.y + 1.0 + sphereRadius) / sphereRadius, 3.0);

    vec3 normal = (p - sphereCenter) / sphereRadius;
    vec3 refracted = refractedLightDir(light);
    vec3 diffuse = max(0.0, dot(-refracted, normal)) * 0.5 * lightColor;
#ifdef CAP_CAUSTICS
    if (p.y < waterHeight(p)) {
        diffuse *= texture(caustics, causticUV(p, refracted)).r * 4.0;
    }
#endif
    return color + diffuse;
}

vec3 waterFilter(vec3 waterColor, float pathLength) {
#ifdef CAP_TINT
    return mix(shallowColor, deepColor, clamp(pathLength / 2.0, 0.0, 1.0));
#else
    return waterColor;
#endif
}

vec3 sunHighlight(vec3 ray) {
    return vec3(pow(max(0.0, dot(light, ray)), 5000.0)) * vec3(10.0, 8.0, 6.0) * specular * lightColor;
}

vec3 surfaceRayColor(vec3 origin, vec3 ray, vec3 waterColor) {
    vec3 color;
    float pathLength;
    float q = intersectSphere(origin, ray, sphereCenter, sphereRadius);
    if (q < noHit) {
        color = sphereColor(origin + ray * q);
        pathLength = q;
    } else {
        vec2 t = intersectCube(origin, ray, poolMin, poolMax);
        vec3 hit = origin + ray * t.y;
        pathLength = t.y;
        if (ray.y < 0.0 || hit.y < rimHeight) {
            color = wallColor(hit);
        } else {
            color = texture(sky, ray).rgb + sunHighlight(ray);
        }
    }
    if (ray.y < 0.0) color *= waterFilter(waterColor, pathLength);
    return color;
}

float fresnelFactor(float base, vec3 normal, vec3 incoming) {
    return mix(base, 1.0, pow(clamp(1.0 - dot(normal, -incoming), 0.0, 1.0), 3.0));
}

vec4 finish(vec3 c) {
    c = vec3(isnan(c.r) ? 0.0 : c.r, isnan(c.g) ? 0.0 : c.g, isnan(c.b) ? 0.0 : c.b);
    return vec4(clamp(c, 0.0, 1.0), 1.0);
}
`

const skyFragment = `
uniform mat4 inverseViewProj;

void main() {
    vec4 far = inverseViewProj * vec4(coord * 2.0 - 1.0, 1.0, 1.0);
    vec3 dir = normalize(far.xyz / far.w - eye);
    fragColor = finish(texture(sky, dir).rgb);
}
`

const poolVertex = `
out vec3 worldPos;

void main() {
    worldPos = position;
    worldPos.y = ((position.y + 1.0) * (7.0 / 12.0) - 1.0) * poolHeight;
    gl_Position = viewProj * vec4(worldPos, 1.0);
    writeClip(worldPos);
}
`

const poolFragment = `
in vec3 worldPos;

void main() {
    vec3 color = wallColor(worldPos);
#ifdef CAP_WATER_SAMPLING
    if (worldPos.y < waterHeight(worldPos)) color *= underWaterColor * 1.2;
#endif
    fragColor = finish(color);
}
`

const sphereVertex = `
out vec3 worldPos;

void main() {
    worldPos = sphereCenter + position * sphereRadius;
    gl_Position = viewProj * vec4(worldPos, 1.0);
    writeClip(worldPos);
}
`

const sphereFragment = `
in vec3 worldPos;

void main() {
    vec3 color = sphereColor(worldPos);
#ifdef CAP_WATER_SAMPLING
    if (worldPos.y < waterHeight(worldPos)) color *= underWaterColor * 1.2;
#endif
    fragColor = finish(color);
}
`

const waterVertex = `
uniform mat4 reflectionMatrix;
out vec3 worldPos;
out vec4 reflectionCoord;

void main() {
    vec4 info = texture(water, position.xz * 0.5 + 0.5);
    worldPos = position;
    worldPos.y += info.r;
    gl_Position = viewProj * vec4(worldPos, 1.0);
    reflectionCoord = reflectionMatrix * vec4(worldPos, 1.0);
    writeClip(worldPos);
}
`

const waterAboveFragment = `
uniform sampler2D reflection;
in vec3 worldPos;
in vec4 reflectionCoord;

vec3 reflectedColor(vec3 normal, vec3 ray) {
#ifdef CAP_REFLECTION
    if (reflectionCoord.w > 1e-6) {
        vec2 uv = reflectionCoord.xy / reflectionCoord.w + normal.xz * reflectionDistortion;
        return texture(reflection, uv).rgb + sunHighlight(ray);
    }
#endif
    return surfaceRayColor(worldPos, ray, aboveWaterColor);
}

void main() {
    vec3 normal = surfaceNormal(worldPos);
    vec3 incoming = normalize(worldPos - eye);
    vec3 reflected = reflect(incoming, normal);
    vec3 refracted = refract(incoming, normal, IOR_AIR / IOR_WATER);
    float fresnel = fresnelFactor(0.25, normal, incoming);

    vec3 below = surfaceRayColor(worldPos, refracted, aboveWaterColor);
    fragColor = finish(mix(below, reflectedColor(normal, reflected), fresnel));
}
`

const waterBelowFragment = `
in vec3 worldPos;
in vec4 reflectionCoord;

void main() {
    vec3 normal = -surfaceNormal(worldPos);
    vec3 incoming = normalize(worldPos - eye);
    vec3 reflected = reflect(incoming, normal);
    vec3 refracted = refract(incoming, normal, IOR_WATER / IOR_AIR);
    float fresnel = fresnelFactor(0.5, normal, incoming);

    vec3 reflectedColor = surfaceRayColor(worldPos, reflected, underWaterColor);
    vec3 refractedColor = surfaceRayColor(worldPos, refracted, vec3(1.0)) * vec3(0.8, 1.0, 1.1);
    fragColor = finish(mix(reflectedColor, refractedColor, (1.0 - fresnel) * length(refracted)));
}
`
