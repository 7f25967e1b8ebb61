package distributed

// luaReserve refills and reserves tokens atomically.
//
// KEYS[1]: bucket hash with fields tokens and last
// ARGV: requested, now (s), rate (tokens/s), burst, max wait (s, -1 = any), ttl (ms)
// Returns {allowed, tokens, delay seconds}; numbers go out as strings so
// Redis does not truncate them.
const luaReserve = `
local key = KEYS[1]
local requested = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local rate = tonumber(ARGV[3])
local burst = tonumber(ARGV[4])
local max_wait = tonumber(ARGV[5])
local ttl = tonumber(ARGV[6])

local state = redis.call('HMGET', key, 'tokens', 'last')
local tokens = tonumber(state[1]) or burst
local last = tonumber(state[2]) or now

local elapsed = math.max(0, now - last)
tokens = math.min(burst, tokens + elapsed * rate)

if requested > burst then
    return {0, tostring(tokens), "-1"}
end

local remaining = tokens - requested
local delay = 0
if remaining < 0 then
    delay = -remaining / rate
end

if max_wait >= 0 and delay > max_wait then
    return {0, tostring(tokens), tostring(delay)}
end

redis.call('HSET', key, 'tokens', tostring(remaining), 'last', tostring(now))
redis.call('PEXPIRE', key, ttl)
return {1, tostring(remaining), tostring(delay)}
`
